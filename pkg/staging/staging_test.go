package staging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "glides"))
	require.NoError(t, err)
	return s
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "glides")
	s, err := New(root)
	require.NoError(t, err)

	info, err := os.Stat(s.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewRejectsEmptyRoot(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestStageAndRetrieve(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	w, err := s.Create(ctx, "alice", "bob", "notes.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello bob"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// staged under <root>/<sender>/<recipient>/<basename>
	path, err := s.Path("alice", "bob", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "alice", "bob", "notes.txt"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	r, size, err := s.Open(ctx, "alice", "bob", "notes.txt")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uint32(9), size)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello bob", string(data))
}

func TestCreateTruncatesPreviousCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	w, err := s.Create(ctx, "alice", "bob", "f")
	require.NoError(t, err)
	_, err = w.Write([]byte("first version, long"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = s.Create(ctx, "alice", "bob", "f")
	require.NoError(t, err)
	_, err = w.Write([]byte("v2"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, size, err := s.Open(ctx, "alice", "bob", "f")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uint32(2), size)
}

func TestSameBasenameDistinctPairs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, pair := range [][2]string{{"alice", "bob"}, {"alice", "carol"}, {"bob", "alice"}} {
		w, err := s.Create(ctx, pair[0], pair[1], "report.pdf")
		require.NoError(t, err)
		_, err = w.Write([]byte(pair[0] + "->" + pair[1]))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	r, _, err := s.Open(ctx, "alice", "carol", "report.pdf")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "alice->carol", string(data))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	w, err := s.Create(ctx, "alice", "bob", "f")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, s.Remove("alice", "bob", "f"))

	_, _, err = s.Open(ctx, "alice", "bob", "f")
	assert.ErrorIs(t, err, ErrNotStaged)

	assert.ErrorIs(t, s.Remove("alice", "bob", "f"), ErrNotStaged)
}

func TestRejectsTraversalComponents(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	bad := []string{"", ".", "..", "../etc", "a/b", `a\b`, "nul\x00byte"}
	for _, name := range bad {
		_, err := s.Path(name, "bob", "f")
		assert.ErrorIs(t, err, ErrInvalidName, "sender %q", name)

		_, err = s.Path("alice", name, "f")
		assert.ErrorIs(t, err, ErrInvalidName, "recipient %q", name)

		_, err = s.Create(ctx, "alice", "bob", name)
		assert.ErrorIs(t, err, ErrInvalidName, "filename %q", name)
	}
}

func TestContextCancellation(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, "alice", "bob", "f")
	assert.ErrorIs(t, err, context.Canceled)

	_, _, err = s.Open(ctx, "alice", "bob", "f")
	assert.ErrorIs(t, err, context.Canceled)
}
