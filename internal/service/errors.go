package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")

	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("product variant not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrAlertNotFound   = errors.New("low stock alert not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrVariantInactive  = errors.New("product variant is inactive")
	ErrEmailTaken       = errors.New("email already registered")
	ErrSKUAlreadyExists = errors.New("sku already exists")
	ErrInvalidQuantity  = errors.New("quantity must be > 0")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrEmptyOrder       = errors.New("order must contain at least one item")
)

// InsufficientStockError is raised when a deduction would drive stock
// negative. Names the SKU so multi-item failures identify the offender.
type InsufficientStockError struct {
	SKU       string
	Available int
	Required  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, required %d",
		e.SKU, e.Available, e.Required)
}

// InvalidTransitionError is raised on an illegal order status change
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// NotCancellableError is raised when cancellation is requested past the
// point of no return
type NotCancellableError struct {
	Status string
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("order cannot be cancelled in current status: %s", e.Status)
}
