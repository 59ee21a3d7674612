// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"errors"
)

// Settlement states reported by the gateway for a checkout session
const (
	SessionPaid              = "paid"
	SessionUnpaid            = "unpaid"
	SessionNoPaymentRequired = "no_payment_required"
)

// ErrGatewayUnavailable is returned when the payment gateway cannot be
// reached or refuses the request. Callers degrade gracefully; nothing is
// ever marked settled on the strength of this error.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// LineItem is one course priced for checkout
type LineItem struct {
	CourseID    uint
	Name        string
	Description string
	Price       int64 // in cents
}

// Session is a freshly created checkout session
type Session struct {
	ID  string
	URL string // where the user is redirected to pay
}

// SessionStatus is the gateway's authoritative record of a session
type SessionStatus struct {
	ID            string
	PaymentStatus string // paid | unpaid | no_payment_required
	UserID        uint
	CourseIDs     []uint // in session metadata order
}

// Paid reports whether the session settled
func (s *SessionStatus) Paid() bool {
	return s.PaymentStatus == SessionPaid
}

// Gateway is the boundary to the external settlement system. Two
// operations only; no business logic belongs behind this interface.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, userID uint, items []LineItem) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
}
