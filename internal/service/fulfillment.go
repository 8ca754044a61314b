package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/payment"
	"github.com/snipmart/snipmart/internal/repository"
)

// FulfillmentService converts completed checkout sessions into persisted
// entitlements.
type FulfillmentService struct {
	provider     payment.Provider
	users        repository.UserRepository
	fulfillments repository.FulfillmentRepository
	logger       *slog.Logger
}

func NewFulfillmentService(
	provider payment.Provider,
	users repository.UserRepository,
	fulfillments repository.FulfillmentRepository,
	logger *slog.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		provider:     provider,
		users:        users,
		fulfillments: fulfillments,
		logger:       logger,
	}
}

// FulfillmentResult carries what was unlocked, for redirecting the buyer
// to the content.
type FulfillmentResult struct {
	ProductID        string `json:"productId"`
	UserID           string `json:"userId"`
	AlreadyFulfilled bool   `json:"alreadyFulfilled,omitempty"`
}

// Fulfill retrieves the checkout session, verifies its metadata, and
// adds the product to the user's purchases.
//
// The operation is idempotent at two levels: a session that was already
// fulfilled short-circuits before any provider call, and the purchase
// append itself is an atomic set union, so even interleaved invocations
// leave the product in the purchases list exactly once. A session whose
// metadata lacks productId or userId writes nothing.
func (s *FulfillmentService) Fulfill(ctx context.Context, sessionID string) (*FulfillmentResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.ValidationFailed("sessionId", "session id is required")
	}

	// Seen this session before? The recorded outcome is authoritative.
	if prior, err := s.fulfillments.Get(ctx, sessionID); err == nil {
		s.logger.Info("fulfillment replayed",
			slog.String("sessionID", sessionID),
			slog.String("productID", prior.ProductID),
		)
		return &FulfillmentResult{
			ProductID:        prior.ProductID,
			UserID:           prior.UserID,
			AlreadyFulfilled: true,
		}, nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking prior fulfillment of session %s: %w", sessionID, err)
	}

	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("retrieving checkout session failed",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("retrieving session %s: %w", sessionID, err)
	}

	if session.Status != "" && session.Status != payment.StatusComplete {
		return nil, apperror.ValidationFailed("session",
			"session "+sessionID+" is not complete (status "+session.Status+")")
	}

	productID := session.Metadata[payment.MetaProductID]
	userID := session.Metadata[payment.MetaUserID]
	if productID == "" || userID == "" {
		// A session this app created always carries both keys; their
		// absence means a malformed or tampered session id.
		return nil, apperror.Integrity("session " + sessionID + " metadata is missing productId or userId")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s for session %s: %w", userID, sessionID, err)
	}

	added, err := s.users.AddPurchase(ctx, user.ID, productID)
	if err != nil {
		return nil, fmt.Errorf("adding purchase %s for user %s: %w", productID, user.ID, err)
	}

	record := &repository.Fulfillment{
		SessionID: sessionID,
		ProductID: productID,
		UserID:    userID,
	}
	if err := s.fulfillments.Record(ctx, record); err != nil {
		// The entitlement is already persisted; failing the whole call
		// now would make the buyer retry for nothing. The next replay of
		// this session will hit the purchases dedupe instead.
		s.logger.Error("recording fulfillment failed",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("purchase fulfilled",
		slog.String("sessionID", sessionID),
		slog.String("productID", productID),
		slog.String("userID", userID),
		slog.Bool("added", added),
	)

	return &FulfillmentResult{
		ProductID:        productID,
		UserID:           userID,
		AlreadyFulfilled: !added,
	}, nil
}
