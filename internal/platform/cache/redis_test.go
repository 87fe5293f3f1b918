package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/audiobrief/internal/config"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetGet(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	ctx := context.Background()

	want := domain.Result{
		FileURL:     "https://blob.example/audiobooks/atomic_habits.mp3",
		SummaryText: "Small habits compound.",
		Title:       "Atomic Habits",
		Author:      "James Clear",
	}
	require.NoError(t, c.Set(ctx, "atomic_habits", want, time.Hour))

	got, err := c.Get(ctx, "atomic_habits")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	assert.True(t, mr.Exists("query:atomic_habits"))
	assert.Equal(t, time.Hour, mr.TTL("query:atomic_habits"))
}

func TestRedisCache_Miss(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "unknown")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
}

func TestRedisCache_Expiry(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "deep_work", domain.Result{FileURL: "u", SummaryText: "s"}, time.Minute))
	mr.FastForward(61 * time.Second)

	_, err := c.Get(ctx, "deep_work")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)

	require.NoError(t, mr.Set("query:broken", "{not json"))

	_, err := c.Get(context.Background(), "broken")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
}

func TestRedisCache_RejectsNonPositiveTTL(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)

	err := c.Set(context.Background(), "x", domain.Result{}, 0)
	assert.Error(t, err)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), config.RedisConfig{Addr: addr}, nil)
	assert.Error(t, err)
}
