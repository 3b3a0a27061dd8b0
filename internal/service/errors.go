package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")           // 401
	ErrNotFound          = errors.New("not found")              // 404
	ErrValidation        = errors.New("invalid input")          // 400
	ErrInsufficientStock = errors.New("insufficient stock")     // 400
	ErrBelowMinimum      = errors.New("below minimum")          // 400
	ErrInvalidCoupon     = errors.New("invalid coupon")         // 404
	ErrInvalidSignature  = errors.New("invalid signature")      // 400
	ErrPaymentProvider   = errors.New("payment provider error") // 500
	ErrAlreadyDelivered  = errors.New("already delivered")      // 400
)

// Error pairs one of the kinds above with a message meant for the client.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
