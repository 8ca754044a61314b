// Package payment defines the hosted-checkout payment provider
// boundary.
//
// The provider owns checkout sessions end to end: the app creates one,
// redirects the buyer to its hosted URL, and later retrieves the session
// by id to learn what was bought and by whom. Sessions are never
// persisted locally.
package payment

import "context"

// SessionIDPlaceholder is the literal token the provider substitutes
// with the real session id when redirecting to the success URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Session statuses reported by the provider.
const (
	StatusOpen     = "open"
	StatusComplete = "complete"
	StatusExpired  = "expired"
)

// Metadata keys attached to every session this app creates.
const (
	MetaProductID = "productId"
	MetaUserID    = "userId"
)

// LineItem is the single purchasable row of a checkout session.
// UnitAmount is an integer in minor currency units.
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Currency    string
	Quantity    int64
}

// CreateSessionParams configures a one-time-payment checkout session.
// SuccessURL must contain SessionIDPlaceholder so the redirect carries
// the session id back.
type CreateSessionParams struct {
	LineItem   LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Session is the provider's view of one payment attempt.
type Session struct {
	ID          string
	URL         string
	Status      string
	AmountTotal int64
	Currency    string
	Metadata    map[string]string
}

// Provider is the payment collaborator consumed by the checkout and
// fulfillment services. Implementations make exactly one remote call per
// method and never retry; transient failures surface to the caller.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
}
