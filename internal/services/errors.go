package services

import "errors"

// Sentinel errors returned by the services. Handlers map them to HTTP status
// codes with errors.Is; anything else is treated as an internal error.
var (
	ErrUserNotFound            = errors.New("user not found")
	ErrMissingFields           = errors.New("username, email, and password are required")
	ErrUsernameTaken           = errors.New("username already exists")
	ErrEmailTaken              = errors.New("email already exists")
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrCoinNotFound            = errors.New("coin not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrEmptyOrder              = errors.New("order has no items")
	ErrInvalidQuantity         = errors.New("quantity must be positive")
	ErrInsufficientStock       = errors.New("not enough stock")
	ErrPaymentAlreadyCompleted = errors.New("payment already completed")
	ErrInvalidStatus           = errors.New("invalid status")
)
