package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Arish613/go-technician-sub001/cart-service/internal/catalog"
	"github.com/Arish613/go-technician-sub001/cart-service/internal/domain"
	s "github.com/Arish613/go-technician-sub001/cart-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type CartService interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID, serviceID string) (*domain.Cart, bool, error)
	RemoveItem(ctx context.Context, sessionID, serviceID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	Checkout(ctx context.Context, sessionID string, contact domain.Contact) (*domain.BookingRequest, error)
}

type ServiceCatalog interface {
	ListServices(ctx context.Context) ([]*catalog.Service, error)
	ListSubServices(ctx context.Context, parentID string) ([]*catalog.Service, error)
}

type CartHandler struct {
	cart     CartService
	catalog  ServiceCatalog
	currency string
	timeout  time.Duration
	maxBody  int64
	log      *zap.Logger
}

func NewCartHandler(cart CartService, catalog ServiceCatalog, currency string, timeout time.Duration, maxBody int64, log *zap.Logger) *CartHandler {
	return &CartHandler{
		cart:     cart,
		catalog:  catalog,
		currency: currency,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type AddItemRequestDTO struct {
	ServiceID string `json:"service_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type CartItemDTO struct {
	ServiceID       string           `json:"service_id"`
	Name            string           `json:"name"`
	Category        string           `json:"category,omitempty"`
	Quantity        int              `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	EffectivePrice  decimal.Decimal  `json:"effective_price"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
}

type CartDTO struct {
	SessionID  string          `json:"session_id"`
	Items      []CartItemDTO   `json:"items"`
	ItemCount  int             `json:"item_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
}

type CheckoutResponseDTO struct {
	CheckoutID string              `json:"checkout_id"`
	Status     string              `json:"status"`
	Cart       domain.CartSnapshot `json:"cart"`
}

func convertCart(c *domain.Cart, sessionID, currency string) CartDTO {
	entries := c.Entries()
	dto := CartDTO{
		SessionID:  sessionID,
		Items:      make([]CartItemDTO, len(entries)),
		ItemCount:  c.ItemCount(),
		TotalPrice: c.TotalPrice(),
		Currency:   currency,
	}

	for i, e := range entries {
		dto.Items[i] = CartItemDTO{
			ServiceID:       e.Item.ID,
			Name:            e.Item.Name,
			Category:        e.Item.Category,
			Quantity:        e.Quantity,
			UnitPrice:       e.Item.UnitPrice,
			DiscountedPrice: e.Item.DiscountedPrice,
			EffectivePrice:  e.Item.EffectivePrice(),
			Subtotal:        e.Subtotal(),
		}
	}

	return dto
}

func (h *CartHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		services []*catalog.Service
		err      error
	)
	if parentID := r.URL.Query().Get("parent_id"); parentID != "" {
		services, err = h.catalog.ListSubServices(ctx, parentID)
	} else {
		services, err = h.catalog.ListServices(ctx)
	}
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if services == nil {
		services = []*catalog.Service{}
	}

	respondJSON(w, http.StatusOK, services)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	cart, err := h.cart.GetCart(ctx, sessionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart, sessionID, h.currency))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ServiceID == "" {
		respondError(w, http.StatusBadRequest, "invalid_service_id", "service_id is required")
		return
	}

	sessionID := getSessionID(r.Context())
	cart, added, err := h.cart.AddItem(ctx, sessionID, req.ServiceID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	respondJSON(w, status, convertCart(cart, sessionID, h.currency))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	serviceID := chi.URLParam(r, "service_id")
	if serviceID == "" {
		respondError(w, http.StatusBadRequest, "invalid_service_id", "service_id is required")
		return
	}

	sessionID := getSessionID(r.Context())
	cart, err := h.cart.RemoveItem(ctx, sessionID, serviceID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart, sessionID, h.currency))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	cart, err := h.cart.ClearCart(ctx, sessionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart, sessionID, h.currency))
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var contact domain.Contact
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&contact); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req, err := h.cart.Checkout(ctx, getSessionID(r.Context()), contact)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, CheckoutResponseDTO{
		CheckoutID: req.CheckoutID,
		Status:     "submitted",
		Cart:       req.Cart,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func (h *CartHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, s.ErrMissingSession):
		respondError(w, http.StatusBadRequest, "missing_session", err.Error())
	case errors.Is(err, catalog.ErrServiceNotFound):
		respondError(w, http.StatusNotFound, "service_not_found", "service not found")
	case errors.Is(err, s.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, s.ErrInvalidContact):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid contact details",
			Code:    "invalid_contact",
			Details: err.Error(),
		})
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "booking is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		h.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
