// Package store is the storefront's persistence layer on top of GORM.
package store

import (
	"errors"
	"iter"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidSort       = errors.New("invalid sort key")
	ErrInvalidAction     = errors.New("invalid cart action")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAlreadySubscribed = errors.New("email already subscribed")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrOrderCompleted    = errors.New("order already completed")
	ErrUnknownCity       = errors.New("unknown city")
	ErrCategoryCycle     = errors.New("category cannot be its own ancestor")
	ErrUnknownParent     = errors.New("parent category not found")
	ErrNoPayment         = errors.New("no payment session for the order")
	ErrAmountMismatch    = errors.New("paid amount does not match the payment session")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// notFound maps gorm.ErrRecordNotFound to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Collect drains a fallible sequence into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
