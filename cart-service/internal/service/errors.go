package service

import "errors"

var (
	ErrEmptyCart      = errors.New("cart is empty, nothing to checkout")
	ErrMissingSession = errors.New("session id is required")
	ErrInvalidContact = errors.New("invalid contact details")
)
