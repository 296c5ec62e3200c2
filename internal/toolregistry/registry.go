// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package toolregistry maintains an up-to-date catalog of tools across all
// known tool servers (§4.2). Unlike the teacher's pkg/registry
// (RWMutex-guarded map reads), lookups here never take a lock: the catalog
// is an immutable snapshot swapped atomically on refresh, per §9's "no
// locks during lookup" design note.
package toolregistry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/northbridge-ins/agentcore/internal/toolclient"
	"github.com/northbridge-ins/agentcore/toolpb"
)

// entry is one named tool's resolved descriptor plus the server it
// resolved to, used for conflict-logging when a later refresh reorders.
type entry struct {
	descriptor toolpb.Descriptor
	stale      bool
}

// catalog is the immutable snapshot swapped atomically by Refresh.
type catalog struct {
	byName map[string]entry
	all    []toolpb.Descriptor
}

// Registry is the Tool Registry: a per-process singleton that owns one TPC
// per configured server and refreshes their combined catalog.
type Registry struct {
	servers   []string // configuration order, determines conflict tie-break
	clients   *toolclient.Registry
	snapshot  atomic.Pointer[catalog]
	logger    *slog.Logger
	loggedMu  sync.Mutex
	loggedConflicts map[string]bool // deduplicated per (server pair, tool name)
}

func New(servers []string, clients *toolclient.Registry, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		servers:         servers,
		clients:         clients,
		logger:          logger,
		loggedConflicts: make(map[string]bool),
	}
	r.snapshot.Store(&catalog{byName: map[string]entry{}})
	return r
}

// Refresh concurrently invokes ListTools on each configured server (via
// errgroup, grounded on the spec's §5 fan-out requirement) and atomically
// swaps the in-memory catalog. A failing server keeps its last-known
// descriptors, flagged stale=true, per §4.2's partial-refresh rule.
func (r *Registry) Refresh(ctx context.Context) error {
	prev := r.snapshot.Load()

	type serverResult struct {
		server string
		tools  []toolpb.Descriptor
		err    error
	}
	results := make([]serverResult, len(r.servers))

	g, gctx := errgroup.WithContext(ctx)
	for i, serverID := range r.servers {
		i, serverID := i, serverID
		g.Go(func() error {
			client, ok := r.clients.Get(serverID)
			if !ok {
				results[i] = serverResult{server: serverID, err: nil, tools: nil}
				return nil
			}
			tools, err := client.ListTools(gctx)
			results[i] = serverResult{server: serverID, tools: tools, err: err}
			return nil // never abort the whole refresh for one server's failure
		})
	}
	_ = g.Wait()

	next := &catalog{byName: make(map[string]entry)}

	for _, res := range results {
		if res.err != nil {
			r.logger.Warn("tool server refresh failed, keeping stale entries",
				"component", "toolregistry", "server_id", res.server, "error", res.err.Error())
			for name, e := range prev.byName {
				if e.descriptor.ServerID == res.server {
					e.stale = true
					next.byName[name] = e
				}
			}
			continue
		}
		for _, d := range res.tools {
			if existing, conflict := next.byName[d.Name]; conflict {
				r.logConflictOnce(existing.descriptor.ServerID, d.ServerID, d.Name)
				continue // configuration order: first-registered server wins
			}
			next.byName[d.Name] = entry{descriptor: d}
		}
	}

	next.all = make([]toolpb.Descriptor, 0, len(next.byName))
	for _, e := range next.byName {
		next.all = append(next.all, e.descriptor)
	}

	r.snapshot.Store(next)
	return nil
}

func (r *Registry) logConflictOnce(winner, loser, name string) {
	key := winner + "|" + loser + "|" + name
	r.loggedMu.Lock()
	defer r.loggedMu.Unlock()
	if r.loggedConflicts[key] {
		return
	}
	r.loggedConflicts[key] = true
	r.logger.Warn("tool name conflict, configuration order wins",
		"component", "toolregistry", "tool_name", name, "winner_server", winner, "loser_server", loser)
}

// Lookup returns at most one descriptor for name, lock-free.
func (r *Registry) Lookup(name string) (toolpb.Descriptor, bool) {
	snap := r.snapshot.Load()
	e, ok := snap.byName[name]
	if !ok {
		return toolpb.Descriptor{}, false
	}
	return e.descriptor, true
}

// AllTools returns a snapshot copy safe to enumerate without locking.
func (r *Registry) AllTools() []toolpb.Descriptor {
	snap := r.snapshot.Load()
	out := make([]toolpb.Descriptor, len(snap.all))
	copy(out, snap.all)
	return out
}

// Empty reports whether the registry currently has no tools at all,
// triggering the NoToolsDiscovered path in §4.3.
func (r *Registry) Empty() bool {
	return len(r.snapshot.Load().byName) == 0
}

// StartPeriodicRefresh runs Refresh once immediately (lazy at process
// start, §4.2) then on the given interval until ctx is cancelled.
func (r *Registry) StartPeriodicRefresh(ctx context.Context, interval time.Duration) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Error("initial registry refresh failed", "component", "toolregistry", "error", err.Error())
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					r.logger.Error("periodic registry refresh failed", "component", "toolregistry", "error", err.Error())
				}
			}
		}
	}()
}
