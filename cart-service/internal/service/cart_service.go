package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Arish613/go-technician-sub001/cart-service/internal/cache"
	"github.com/Arish613/go-technician-sub001/cart-service/internal/catalog"
	"github.com/Arish613/go-technician-sub001/cart-service/internal/domain"
	"github.com/Arish613/go-technician-sub001/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Catalog supplies the services that can be put in a cart
type Catalog interface {
	GetService(ctx context.Context, id string) (*catalog.Service, error)
}

// BookingPublisher hands a completed checkout to order processing
type BookingPublisher interface {
	PublishBooking(ctx context.Context, req *domain.BookingRequest) error
}

type CartService struct {
	store     cache.CartStore
	catalog   Catalog
	publisher BookingPublisher
	currency  string
	log       *zap.Logger
	validate  *validator.Validate
	sfg       singleflight.Group // Prevents duplicate loads of the same session
	locks     *sessionLocks
	now       func() time.Time
	newID     func() string
}

func NewCartService(store cache.CartStore, catalog Catalog, publisher BookingPublisher, currency string, log *zap.Logger) *CartService {
	return &CartService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		currency:  currency,
		log:       log,
		validate:  validator.New(),
		locks:     newSessionLocks(),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// GetCart returns the session's cart, or a new empty one when the session has
// none yet. Concurrent calls for the same session share one load, so the
// returned cart must be treated as read-only.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		return s.load(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem looks the service up in the catalog and adds it to the session cart.
// added is false when the service was already in the cart.
func (s *CartService) AddItem(ctx context.Context, sessionID, serviceID string) (cart *domain.Cart, added bool, err error) {
	if sessionID == "" {
		return nil, false, ErrMissingSession
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up service %q: %w", serviceID, err)
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	cart, err = s.load(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	added = cart.AddItem(svc.LineItem)
	if err := s.store.Set(ctx, sessionID, cart); err != nil {
		return nil, false, fmt.Errorf("failed to save cart: %w", err)
	}

	logger.WithTrace(ctx, s.log).Debug("add item",
		zap.String("session_id", sessionID),
		zap.String("service_id", serviceID),
		zap.Bool("added", added),
		zap.Int("item_count", cart.ItemCount()),
	)
	return cart, added, nil
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, serviceID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !cart.Contains(serviceID) {
		return cart, nil
	}

	cart.RemoveItem(serviceID)
	if cart.IsEmpty() {
		err = s.store.Delete(ctx, sessionID)
	} else {
		err = s.store.Set(ctx, sessionID, cart)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	return domain.NewCart(), nil
}

// Checkout turns the session cart into a booking request, publishes it and
// empties the cart. The cart is kept when publishing fails.
func (s *CartService) Checkout(ctx context.Context, sessionID string, contact domain.Contact) (*domain.BookingRequest, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	if err := s.validate.Struct(contact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContact, err)
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	req := &domain.BookingRequest{
		CheckoutID: s.newID(),
		SessionID:  sessionID,
		Contact:    contact,
		Cart:       domain.NewCartSnapshot(cart, s.currency, s.now().UTC()),
	}

	if err := s.publisher.PublishBooking(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to submit booking: %w", err)
	}

	log := logger.WithTrace(ctx, s.log)
	if err := s.store.Delete(ctx, sessionID); err != nil {
		// booking is already out; a stale cart is the lesser problem
		log.Error("failed to clear cart after checkout",
			zap.String("session_id", sessionID),
			zap.String("checkout_id", req.CheckoutID),
			zap.Error(err),
		)
	}

	log.Info("checkout completed",
		zap.String("session_id", sessionID),
		zap.String("checkout_id", req.CheckoutID),
		zap.String("total", req.Cart.TotalAmount.String()),
	)
	return req, nil
}

func (s *CartService) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, sessionID)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, cache.ErrCacheMiss) {
		return domain.NewCart(), nil
	}
	return nil, fmt.Errorf("failed to load cart: %w", err)
}
