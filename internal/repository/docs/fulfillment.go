package docs

import (
	"context"
	"fmt"
	"time"

	"github.com/snipmart/snipmart/internal/docstore"
	"github.com/snipmart/snipmart/internal/repository"
)

var _ repository.FulfillmentRepository = (*FulfillmentRepo)(nil)

// FulfillmentRepo records processed checkout sessions, keyed by session
// id, in the "fulfillments" collection.
type FulfillmentRepo struct {
	store docstore.Store
}

func NewFulfillmentRepo(store docstore.Store) *FulfillmentRepo {
	return &FulfillmentRepo{store: store}
}

func (r *FulfillmentRepo) Record(ctx context.Context, f *repository.Fulfillment) error {
	if f.FulfilledAt.IsZero() {
		f.FulfilledAt = time.Now().UTC()
	}
	fields := map[string]any{
		"productId":   f.ProductID,
		"userId":      f.UserID,
		"fulfilledAt": f.FulfilledAt,
	}
	if err := r.store.Set(ctx, fulfillmentsCollection, f.SessionID, fields); err != nil {
		return fmt.Errorf("recording fulfillment %s: %w", f.SessionID, storeErr(err, "fulfillment", f.SessionID))
	}
	return nil
}

func (r *FulfillmentRepo) Get(ctx context.Context, sessionID string) (*repository.Fulfillment, error) {
	doc, err := r.store.Get(ctx, fulfillmentsCollection, sessionID)
	if err != nil {
		return nil, storeErr(err, "fulfillment", sessionID)
	}

	f := &repository.Fulfillment{SessionID: sessionID}
	f.ProductID, _ = doc.Fields["productId"].(string)
	f.UserID, _ = doc.Fields["userId"].(string)
	if s, ok := doc.Fields["fulfilledAt"].(string); ok {
		f.FulfilledAt, _ = time.Parse(time.RFC3339Nano, s)
	}
	return f, nil
}
