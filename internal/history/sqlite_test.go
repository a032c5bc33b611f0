package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id, err := s.Record(ctx, Firing{
			Schedule:     "nightly",
			Expression:   "0 * * * *",
			ScheduledFor: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "fir_"))
	}
	_, err := s.Record(ctx, Firing{ID: "fixed", Schedule: "other", Expression: "* * * * *", ScheduledFor: base})
	require.NoError(t, err)

	all, err := s.ListRecent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, base.Add(2*time.Hour), all[0].ScheduledFor)
	assert.Equal(t, StatusFired, all[0].Status)

	nightly, err := s.ListRecent(ctx, "nightly", 2)
	require.NoError(t, err)
	require.Len(t, nightly, 2)
	assert.Equal(t, "nightly", nightly[1].Schedule)
	assert.Equal(t, base.Add(time.Hour), nightly[1].ScheduledFor)
}

func TestStore_DuplicateMinute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	f := Firing{Schedule: "nightly", Expression: "0 2 * * *", ScheduledFor: time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)}
	_, err := s.Record(ctx, f)
	require.NoError(t, err)

	_, err = s.Record(ctx, f)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStore_MarkFailedAndLastFired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	first := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	_, err := s.Record(ctx, Firing{Schedule: "a", Expression: "0 2 * * *", ScheduledFor: first})
	require.NoError(t, err)
	id, err := s.Record(ctx, Firing{Schedule: "a", Expression: "0 2 * * *", ScheduledFor: first.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(ctx, id, "webhook down"))

	last, err := s.LastFired(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Time{"a": first.AddDate(0, 0, 1)}, last)

	recent, err := s.ListRecent(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, StatusFailed, recent[0].Status)
	assert.Equal(t, "webhook down", recent[0].Error)
}

func TestStore_EmptyList(t *testing.T) {
	t.Parallel()

	got, err := openStore(t).ListRecent(context.Background(), "", 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
