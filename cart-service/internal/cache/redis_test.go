package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Arish613/go-technician-sub001/cart-service/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, 30*time.Minute)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func sampleCart() *domain.Cart {
	discounted := decimal.NewFromInt(250)
	c := domain.NewCart()
	c.AddItem(domain.LineItem{ID: "svc1", Name: "AC repair", UnitPrice: decimal.NewFromInt(500)})
	c.AddItem(domain.LineItem{ID: "svc2", Name: "Cleaning", UnitPrice: decimal.NewFromInt(300), DiscountedPrice: &discounted})
	return c
}

func TestGet_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	sessionID := "session123"

	mr.Set(cacheKey(sessionID), `{"entries":[{"item":{"id":"svc1","unit_price":"500"},"quantity":1}]}`)

	result, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, result.Entries(), 1)
	assert.Equal(t, "svc1", result.Entries()[0].Item.ID)
	assert.Equal(t, "500", result.TotalPrice().String())
}

func TestGet_CacheMiss(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	result, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	sessionID := "session123"
	require.NoError(t, mr.Set(cacheKey(sessionID), `{"entries":[{"item"`))

	_, err := store.Get(context.Background(), sessionID)
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestGet_RedisDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()

	_, err := store.Get(context.Background(), "session123")
	require.ErrorContains(t, err, "redis get failed")
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_RoundTrip(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	sessionID := "session456"

	require.NoError(t, store.Set(ctx, sessionID, sampleCart()))
	assert.True(t, mr.Exists(cacheKey(sessionID)))

	got, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, got.Entries(), 2)
	assert.Equal(t, "svc1", got.Entries()[0].Item.ID)
	assert.Equal(t, "svc2", got.Entries()[1].Item.ID)
	assert.Equal(t, "750", got.TotalPrice().String())
}

func TestSet_WithTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	sessionID := "session789"
	require.NoError(t, store.Set(context.Background(), sessionID, domain.NewCart()))

	assert.Equal(t, 30*time.Minute, mr.TTL(cacheKey(sessionID)))
}

func TestSet_SessionExpires(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	sessionID := "session789"
	require.NoError(t, store.Set(ctx, sessionID, sampleCart()))

	mr.FastForward(31 * time.Minute)

	_, err := store.Get(ctx, sessionID)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	sessionID := "session999"
	require.NoError(t, store.Set(ctx, sessionID, sampleCart()))
	assert.True(t, mr.Exists(cacheKey(sessionID)))

	require.NoError(t, store.Delete(ctx, sessionID))
	assert.False(t, mr.Exists(cacheKey(sessionID)))
}

func TestDelete_NonExistentKey(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	// Deleting non-existent key should not error
	assert.NoError(t, store.Delete(context.Background(), "nonexistent"))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:test123", cacheKey("test123"))
}
