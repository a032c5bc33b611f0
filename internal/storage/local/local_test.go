package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-tams/cronkit/internal/storage/prunable"
)

func writeObject(t *testing.T, s *Storage, key, body string) string {
	t.Helper()

	w, loc, err := s.OpenWriter(context.Background(), key)
	require.NoError(t, err)
	_, err = io.WriteString(w, body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return loc
}

func TestStorage_WriteReadListDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New("disk", t.TempDir())

	loc := writeObject(t, s, "reports/b.json", "second")
	writeObject(t, s, "reports/a.json", "first")
	assert.Equal(t, filepath.Join(s.BasePath(), "reports", "b.json"), loc)

	r, err := s.OpenReader(ctx, "reports/a.json")
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "first", string(body))

	objs, err := s.List(ctx, "reports")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "reports/a.json", objs[0].Key)
	assert.Equal(t, int64(len("first")), objs[0].Size)
	assert.Equal(t, "reports/b.json", objs[1].Key)

	require.NoError(t, s.Delete(ctx, "reports/a.json"))
	require.NoError(t, s.Delete(ctx, "reports/a.json"))

	objs, err = s.List(ctx, "reports")
	require.NoError(t, err)
	assert.Len(t, objs, 1)
}

func TestStorage_MissingObjects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New("disk", t.TempDir())

	_, err := s.OpenReader(ctx, "reports/none.json")
	assert.True(t, errors.Is(err, prunable.ErrNotFound), err)

	objs, err := s.List(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestStorage_UnclosedWriteIsInvisible(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New("disk", t.TempDir())

	w, loc, err := s.OpenWriter(ctx, "reports/partial.json")
	require.NoError(t, err)
	_, err = io.WriteString(w, "half")
	require.NoError(t, err)

	objs, err := s.List(ctx, "reports")
	require.NoError(t, err)
	assert.Empty(t, objs)

	require.NoError(t, w.(*fileWriter).Abort(errors.New("pipeline failed")))
	_, err = os.Stat(loc)
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(filepath.Dir(loc))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be removed")

	// Close after Abort is a no-op.
	assert.NoError(t, w.Close())
}

func TestStorage_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New("disk", t.TempDir())

	for _, key := range []string{"", "../outside.json", "reports/../../x", "reports//a.json", "reports/./a.json"} {
		_, _, err := s.OpenWriter(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
		_, err = s.OpenReader(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}

	// a leading slash is tolerated
	writeObject(t, s, "/reports/a.json", "x")
	r, err := s.OpenReader(ctx, "reports/a.json")
	require.NoError(t, err)
	require.NoError(t, r.Close())
}
