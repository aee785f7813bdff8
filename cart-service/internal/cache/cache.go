package cache

import (
	"context"
	"errors"

	"github.com/Arish613/go-technician-sub001/cart-service/internal/domain"
)

// CartStore keeps the cart of each shopping session. Entries expire with the
// session; nothing here is durable.
type CartStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Set(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")

func cacheKey(sessionID string) string {
	return "cart:" + sessionID
}
