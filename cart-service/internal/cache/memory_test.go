package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Arish613/go-technician-sub001/cart-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupMemoryStore(t *testing.T, ttl, interval time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := newMemoryStore(ttl, interval, clock.Now)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestMemoryStore_GetMiss(t *testing.T) {
	store, _ := setupMemoryStore(t, time.Minute, time.Hour)

	cart, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, cart)
}

func TestMemoryStore_SetGet(t *testing.T) {
	store, _ := setupMemoryStore(t, time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", sampleCart()))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ItemCount())
	assert.Equal(t, "750", got.TotalPrice().String())
}

func TestMemoryStore_ReturnsIndependentCopies(t *testing.T) {
	store, _ := setupMemoryStore(t, time.Minute, time.Hour)
	ctx := context.Background()

	original := sampleCart()
	require.NoError(t, store.Set(ctx, "s1", original))
	original.Clear()

	first, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	first.RemoveItem("svc1")

	second, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.ItemCount())
}

func TestMemoryStore_ExpiresAfterTTL(t *testing.T) {
	store, clock := setupMemoryStore(t, time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", domain.NewCart()))
	clock.Advance(2 * time.Minute)

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_SetRefreshesTTL(t *testing.T) {
	store, clock := setupMemoryStore(t, time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", sampleCart()))
	clock.Advance(45 * time.Second)
	require.NoError(t, store.Set(ctx, "s1", sampleCart()))
	clock.Advance(45 * time.Second)

	_, err := store.Get(ctx, "s1")
	assert.NoError(t, err)
}

func TestMemoryStore_CleanupRemovesExpired(t *testing.T) {
	store, clock := setupMemoryStore(t, time.Minute, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "old", domain.NewCart()))
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Set(ctx, "fresh", domain.NewCart()))

	require.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond, "expired session was not swept")

	_, err := store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMemoryStore_Delete(t *testing.T) {
	store, _ := setupMemoryStore(t, time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", sampleCart()))
	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
