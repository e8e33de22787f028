// Package payment talks to the hosted payment page provider.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotConfigured = errors.New("payment provider not configured")
	ErrRejected      = errors.New("payment provider rejected the request")
)

// Provider status codes of an order.
const (
	CodePending    = 1
	CodeAuthorised = 2
	CodePaid       = 3
	CodeExpired    = -1
	CodeCancelled  = -2
	CodeDeclined   = -3
)

type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	Region  string
	Country string
}

type SessionRequest struct {
	CartID      string // stable per order, so retries never open a second session
	Amount      decimal.Decimal
	Currency    string
	Description string
	Customer    Customer
}

// Session is a created hosted payment page.
type Session struct {
	Ref string
	URL string
}

// Status is the provider's view of a session, including what was charged.
type Status struct {
	Code     int
	Text     string
	CartID   string
	Amount   decimal.Decimal
	Currency string
}

// Paid reports whether the provider confirmed the money.
func (s Status) Paid() bool {
	return s.Code == CodeAuthorised || s.Code == CodePaid
}

type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	Check(ctx context.Context, ref string) (Status, error)
}
