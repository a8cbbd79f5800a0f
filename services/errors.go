package services

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrOutOfStock         = errors.New("reward out of stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrReasonRequired     = errors.New("a reason is required when rejecting an order")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrConcurrentUpdate   = errors.New("record was modified concurrently, reload and retry")
	ErrAlreadyUsed        = errors.New("redemption already used")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidBooking     = errors.New("invalid booking")
	ErrInvalidDiscount    = errors.New("invalid discount")
	ErrCodeExhausted      = errors.New("could not allocate a unique redemption code")
	ErrInvalidSetting     = errors.New("invalid setting")
)
