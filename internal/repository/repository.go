// Package repository declares the typed persistence interfaces.
//
// Implementations parse and validate documents at the store boundary, so
// services only ever handle model structs. The interfaces are what the
// service tests mock.
package repository

import (
	"context"
	"time"

	"github.com/snipmart/snipmart/internal/model"
)

// ListOptions narrows and pages a product listing.
type ListOptions struct {
	OwnerID string // filter by owner when non-empty
	Limit   int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, opts ListOptions) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail returns the first user document with the given email, or
	// a not-found error.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub inserts or updates a user keyed by their GitHub ID,
	// refreshing profile fields on every login.
	UpsertGitHub(ctx context.Context, user *model.User) error
	// AddPurchase atomically adds productID to the user's purchases set.
	// It reports whether the set actually grew: false means the product
	// was already present and nothing changed. The mutation must be a
	// store-side set union, never a get-then-overwrite from the caller.
	AddPurchase(ctx context.Context, userID, productID string) (bool, error)
}

// Fulfillment records that a checkout session has been converted into an
// entitlement. One row per session id makes repeated redirects for the
// same session observable and cheap to short-circuit.
type Fulfillment struct {
	SessionID   string    `json:"sessionId"`
	ProductID   string    `json:"productId"`
	UserID      string    `json:"userId"`
	FulfilledAt time.Time `json:"fulfilledAt"`
}

type FulfillmentRepository interface {
	Record(ctx context.Context, f *Fulfillment) error
	// Get returns the recorded fulfillment for a session id, or a
	// not-found error if the session has never been fulfilled.
	Get(ctx context.Context, sessionID string) (*Fulfillment, error)
}
