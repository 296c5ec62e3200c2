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

// Package sessionstore is the Domain Agent's private collaborator (§4.8):
// an in-memory session_id -> {customer_id, last_used_at} map with a
// background TTL sweeper. Lookup refreshes LastUsedAt and therefore takes
// the store's exclusive lock, so concurrent Lookups are serialized; each
// session has exactly one writer at a time.
package sessionstore

import (
	"context"
	"sync"
	"time"
)

// Session is the immutable-customer-id record §3 describes. CustomerID
// never changes for the session's lifetime; only LastUsedAt is mutated, on
// each successful lookup (sliding TTL).
type Session struct {
	SessionID   string
	CustomerID  string
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Store is the per-process singleton Session Store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{sessions: make(map[string]*Session), ttl: ttl}
}

// Create registers a new session, called by the DA on successful
// authentication (an external concern this store does not perform).
func (s *Store) Create(sessionID, customerID string) *Session {
	now := time.Now()
	sess := &Session{SessionID: sessionID, CustomerID: customerID, CreatedAt: now, LastUsedAt: now}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sess
	return sess
}

// Lookup returns the session if present and not expired, refreshing its
// LastUsedAt (sliding TTL). Returns ok=false for missing or expired
// sessions — the DA treats both identically per §4.7 step 1.
func (s *Store) Lookup(sessionID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	if time.Since(sess.LastUsedAt) > s.ttl {
		delete(s.sessions, sessionID)
		return Session{}, false
	}
	sess.LastUsedAt = time.Now()
	return *sess, true
}

// Delete destroys a session (explicit logout).
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// StartSweeper evicts entries older than TTL on the given interval until
// ctx is cancelled. A single writer per key (this goroutine, or a Lookup/
// Create call) is sufficient per §4.8.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUsedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
