package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidLineItem = errors.New("invalid line item")

// LineItem is a sellable service as supplied by the catalog.
type LineItem struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	Category        string           `json:"category,omitempty"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
}

// Validate checks the fields the ledger relies on. It is meant to run at the
// catalog boundary; the ledger itself trusts its input.
func (i LineItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidLineItem)
	}
	if i.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price of %s is negative", ErrInvalidLineItem, i.ID)
	}
	if i.DiscountedPrice != nil && i.DiscountedPrice.IsNegative() {
		return fmt.Errorf("%w: discounted price of %s is negative", ErrInvalidLineItem, i.ID)
	}
	return nil
}

// EffectivePrice returns the discounted price when one is set, else the unit price.
// A discount above the unit price is still used as-is.
func (i LineItem) EffectivePrice() decimal.Decimal {
	if i.DiscountedPrice != nil {
		return *i.DiscountedPrice
	}
	return i.UnitPrice
}

type CartEntry struct {
	Item     LineItem `json:"item"`
	Quantity int      `json:"quantity"`
}

// Subtotal is the effective price times quantity.
func (e CartEntry) Subtotal() decimal.Decimal {
	return e.Item.EffectivePrice().Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Cart is the ordered, deduplicated selection of one shopping session.
// It is not safe for concurrent use.
type Cart struct {
	entries []CartEntry
}

func NewCart() *Cart {
	return &Cart{}
}

// AddItem appends item with quantity 1. Adding an id that is already present
// leaves the cart unchanged; the return value reports whether an entry was appended.
func (c *Cart) AddItem(item LineItem) bool {
	if c.indexOf(item.ID) >= 0 {
		return false
	}
	c.entries = append(c.entries, CartEntry{Item: item, Quantity: 1})
	return true
}

// RemoveItem drops the entry for id, if any.
func (c *Cart) RemoveItem(id string) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
}

func (c *Cart) Clear() {
	c.entries = nil
}

func (c *Cart) Contains(id string) bool {
	return c.indexOf(id) >= 0
}

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []CartEntry {
	out := make([]CartEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, e := range c.entries {
		n += e.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.Subtotal())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.entries) == 0
}

type cartJSON struct {
	Entries []CartEntry `json:"entries"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	entries := c.entries
	if entries == nil {
		entries = []CartEntry{}
	}
	return json.Marshal(cartJSON{Entries: entries})
}

// UnmarshalJSON restores a stored cart. Duplicate ids keep their first
// occurrence and non-positive quantities are reset to 1.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored := Cart{}
	for _, e := range raw.Entries {
		if restored.Contains(e.Item.ID) {
			continue
		}
		if e.Quantity <= 0 {
			e.Quantity = 1
		}
		restored.entries = append(restored.entries, e)
	}
	*c = restored
	return nil
}

func (c *Cart) indexOf(id string) int {
	for i, e := range c.entries {
		if e.Item.ID == id {
			return i
		}
	}
	return -1
}
