package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness violation.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized indicates the caller does not own the resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation indicates malformed or unacceptable input.
	ErrValidation = errors.New("validation failed")
	// ErrPaymentUpstream indicates the payment provider failed or refused to answer.
	ErrPaymentUpstream = errors.New("payment provider failure")
	// ErrPersistence indicates a storage failure other than a missing row.
	ErrPersistence = errors.New("persistence failure")
)

// ErrIllegalTransition is returned when an order cannot move to the requested status.
var ErrIllegalTransition = fmt.Errorf("%w: illegal order status transition", ErrValidation)

// ErrEmptyCart is returned when an order is requested for an empty cart.
var ErrEmptyCart = fmt.Errorf("%w: cart is empty", ErrValidation)

// ErrPaymentDeclined is returned when the provider does not approve a payment.
var ErrPaymentDeclined = fmt.Errorf("%w: payment not approved", ErrPaymentUpstream)

// ErrPaymentMismatch is returned when a payment was not created for the order
// it is presented with.
var ErrPaymentMismatch = fmt.Errorf("%w: payment does not belong to order", ErrUnauthorized)

// Validation wraps a message as an ErrValidation.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Persistence tags a storage error unless it already carries a kind.
func Persistence(err error) error {
	if err == nil || Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// Kind returns the taxonomy sentinel carried by err, or nil.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrAlreadyExists, ErrUnauthorized, ErrValidation, ErrPaymentUpstream, ErrPersistence} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
