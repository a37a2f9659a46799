package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lockstep/internal/syncmode"
)

func samplePosition() Position {
	return Position{
		AnchorID:      "tf-120-3",
		SourceLine:    42,
		EditorTopLine: 30,
		PreviewOffset: 1234.5,
		Mode:          syncmode.TwoWay,
		SavedAt:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDocumentID(t *testing.T) {
	dir := t.TempDir()
	a, err := DocumentID(filepath.Join(dir, "notes.md"))
	require.NoError(t, err)
	b, err := DocumentID(filepath.Join(dir, "sub", "..", "notes.md"))
	require.NoError(t, err)
	c, err := DocumentID(filepath.Join(dir, "other.md"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Load(ctx, "doc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "doc", samplePosition()))
	got, err := s.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, samplePosition(), got)

	require.NoError(t, s.Delete(ctx, "doc"))
	require.NoError(t, s.Delete(ctx, "doc"))
	_, err = s.Load(ctx, "doc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func setupTestRedis(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Save(ctx, "doc-1", samplePosition()))
	assert.True(t, mr.Exists(DefaultPrefix+"doc-1"))

	got, err := store.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, samplePosition().AnchorID, got.AnchorID)
	assert.Equal(t, samplePosition().Mode, got.Mode)
	assert.True(t, samplePosition().SavedAt.Equal(got.SavedAt))

	raw, err := mr.Get(DefaultPrefix + "doc-1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"mode":"two-way"`)
}

func TestRedisStoreMissingAndDelete(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "doc", samplePosition()))
	require.NoError(t, store.Delete(ctx, "doc"))
	_, err = store.Load(ctx, "doc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := setupTestRedis(t, WithTTL(time.Hour), WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "doc", samplePosition()))
	assert.Equal(t, time.Hour, mr.TTL("test:doc"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Load(ctx, "doc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultPrefix+"doc", "{not json"))

	_, err := store.Load(context.Background(), "doc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "decode position")
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "://bad")
	assert.ErrorContains(t, err, "parse redis url")
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := NewRedisStore(ctx, "redis://"+addr)
	assert.ErrorContains(t, err, "connect to redis")
}
