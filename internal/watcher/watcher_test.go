package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, delay time.Duration) (*FileWatcher, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# start\n"), 0o644))

	w, err := New(path, WithDebounce(delay), WithLogger(testr.New(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func receive(t *testing.T, w *FileWatcher) Change {
	t.Helper()
	select {
	case c, ok := <-w.Changes():
		require.True(t, ok, "changes channel closed")
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
		return Change{}
	}
}

func TestNewMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestWriteBurstIsCoalesced(t *testing.T) {
	w, path := newTestWatcher(t, 50*time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("# edit\n"), 0o644))
	}

	c := receive(t, w)
	assert.Equal(t, path, c.Path)
	assert.True(t, c.Op.Has(OpWrite), "op %s", c.Op)

	select {
	case extra := <-w.Changes():
		t.Fatalf("unexpected second change %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSiblingFilesAreIgnored(t *testing.T) {
	w, path := newTestWatcher(t, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.md"), []byte("x"), 0o644))
	select {
	case c := <-w.Changes():
		t.Fatalf("sibling change leaked: %+v", c)
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("# edit\n"), 0o644))
	assert.Equal(t, path, receive(t, w).Path)
}

func TestAtomicSaveIsSeen(t *testing.T) {
	w, path := newTestWatcher(t, 20*time.Millisecond)

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("# saved\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	c := receive(t, w)
	assert.True(t, c.Op.Has(OpCreate), "op %s", c.Op)
}

func TestFlushDeliversPending(t *testing.T) {
	w, path := newTestWatcher(t, time.Hour)

	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Remove})
	w.Flush()

	c := receive(t, w)
	assert.Equal(t, OpWrite|OpRemove|OpChmod, c.Op)

	w.Flush()
	select {
	case extra := <-w.Changes():
		t.Fatalf("flush with nothing pending delivered %+v", extra)
	default:
	}
}

func TestChmodAloneIsIgnored(t *testing.T) {
	w, path := newTestWatcher(t, time.Hour)

	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	w.Flush()
	select {
	case c := <-w.Changes():
		t.Fatalf("chmod delivered %+v", c)
	default:
	}
}

func TestClose(t *testing.T) {
	w, path := newTestWatcher(t, time.Hour)
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Changes()
	assert.False(t, ok, "pending change is discarded on close")
	_, ok = <-w.Errors()
	assert.False(t, ok)

	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	w.Flush()
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "WRITE", OpWrite.String())
	assert.Equal(t, "CREATE|RENAME", (OpCreate | OpRename).String())
	assert.Equal(t, "UNKNOWN", Op(0).String())
	assert.True(t, (OpWrite | OpRemove).Has(OpRemove))
	assert.False(t, OpWrite.Has(OpWrite|OpCreate))
}
