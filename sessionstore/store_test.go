package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndLookup(t *testing.T) {
	store := New(time.Hour)
	store.Create("sess-1", "CUST-001")

	sess, ok := store.Lookup("sess-1")
	require.True(t, ok)
	assert.Equal(t, "CUST-001", sess.CustomerID)
}

func TestLookup_MissingSessionNotFound(t *testing.T) {
	store := New(time.Hour)
	_, ok := store.Lookup("does-not-exist")
	assert.False(t, ok)
}

// TestLookup_ExpiredSessionTreatedAsMissing verifies §4.7 step 1's
// contract: an expired session and a missing one are indistinguishable to
// the caller.
func TestLookup_ExpiredSessionTreatedAsMissing(t *testing.T) {
	store := New(10 * time.Millisecond)
	store.Create("sess-1", "CUST-001")

	time.Sleep(30 * time.Millisecond)
	_, ok := store.Lookup("sess-1")
	assert.False(t, ok)
}

// TestLookup_SlidingTTLRefreshesOnAccess verifies that a session accessed
// before expiry has its TTL window pushed forward, rather than expiring on
// a fixed wall-clock schedule from creation.
func TestLookup_SlidingTTLRefreshesOnAccess(t *testing.T) {
	store := New(40 * time.Millisecond)
	store.Create("sess-1", "CUST-001")

	time.Sleep(25 * time.Millisecond)
	_, ok := store.Lookup("sess-1") // refreshes LastUsedAt
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond) // 50ms since creation, but only 25ms since refresh
	_, ok = store.Lookup("sess-1")
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	store := New(time.Hour)
	store.Create("sess-1", "CUST-001")
	store.Delete("sess-1")

	_, ok := store.Lookup("sess-1")
	assert.False(t, ok)
}

// TestStartSweeper_EvictsExpiredEntries verifies the background sweeper
// removes stale sessions even without an intervening Lookup call.
func TestStartSweeper_EvictsExpiredEntries(t *testing.T) {
	store := New(10 * time.Millisecond)
	store.Create("sess-1", "CUST-001")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartSweeper(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		_, present := store.sessions["sess-1"]
		return !present
	}, time.Second, 5*time.Millisecond)
}
