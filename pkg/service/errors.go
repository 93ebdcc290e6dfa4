package service

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrProductsNotFound  = errors.New("some products not found")
	ErrInsufficientStock = errors.New("not enough stock")
	ErrCurrencyMismatch  = errors.New("currency mismatch")
	ErrSlugTaken         = errors.New("slug already in use")
	ErrInvalidOrderState = errors.New("order is not in a payable state")
)
