package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AddAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, Record{
		ID:      "r-1",
		Request: "show disk usage",
		Action:  "shell_query",
		Target:  "df -h",
		Stage:   "execution",
		Allowed: true,
		Success: true,
	}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r-1", got[0].ID)
	assert.Equal(t, "show disk usage", got[0].Request)
	assert.Equal(t, "shell_query", got[0].Action)
	assert.Equal(t, "df -h", got[0].Target)
	assert.True(t, got[0].Allowed)
	assert.True(t, got[0].Success)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestStore_RecentOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(ctx, Record{
			ID:        string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Request:   "req",
			Stage:     "policy",
		}))
	}

	got, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "e", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestStore_RecentDefaultsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, s.Add(ctx, Record{ID: string(rune('a' + i)), Request: "req", Stage: "policy"}))
	}

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestStore_DeniedRunRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, Record{
		ID:      "r-deny",
		Request: "delete everything",
		Action:  "shell_query",
		Target:  "rm -rf /",
		Stage:   "policy",
		Allowed: false,
		Success: false,
		Rule:    "blocked_application",
		Detail:  "Application 'rm' is not allowed",
	}))

	got, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Allowed)
	assert.Equal(t, "blocked_application", got[0].Rule)
	assert.Equal(t, "Application 'rm' is not allowed", got[0].Detail)
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add(context.Background(), Record{ID: "r-1", Request: "req", Stage: "schema"}))

	got, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
