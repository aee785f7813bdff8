package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartSnapshotItem struct {
	ServiceID       string           `json:"service_id"`
	ServiceName     string           `json:"service_name"`
	Category        string           `json:"category,omitempty"`
	Quantity        int              `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	EffectivePrice  decimal.Decimal  `json:"effective_price"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
}

// CartSnapshot represents the full cart state at checkout time
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	ItemCount   int                `json:"item_count"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Currency    string             `json:"currency"`
	CapturedAt  time.Time          `json:"captured_at"`
}

func NewCartSnapshot(c *Cart, currency string, capturedAt time.Time) CartSnapshot {
	entries := c.Entries()
	items := make([]CartSnapshotItem, len(entries))
	for i, e := range entries {
		items[i] = CartSnapshotItem{
			ServiceID:       e.Item.ID,
			ServiceName:     e.Item.Name,
			Category:        e.Item.Category,
			Quantity:        e.Quantity,
			UnitPrice:       e.Item.UnitPrice,
			DiscountedPrice: e.Item.DiscountedPrice,
			EffectivePrice:  e.Item.EffectivePrice(),
			Subtotal:        e.Subtotal(),
		}
	}
	return CartSnapshot{
		Items:       items,
		ItemCount:   c.ItemCount(),
		TotalAmount: c.TotalPrice(),
		Currency:    currency,
		CapturedAt:  capturedAt,
	}
}

// Contact is the customer data collected by the booking form.
type Contact struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"required,min=5,max=32"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Address string `json:"address,omitempty" validate:"max=255"`
	Comment string `json:"comment,omitempty" validate:"max=2000"`
}

// BookingRequest is what checkout hands to the order-processing side.
type BookingRequest struct {
	CheckoutID string       `json:"checkout_id"`
	SessionID  string       `json:"session_id"`
	Contact    Contact      `json:"contact"`
	Cart       CartSnapshot `json:"cart"`
}
