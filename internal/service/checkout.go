// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate, enforce
// the purchase rules, and talk to the repositories and the payment
// provider through interfaces. Services return domain errors from
// apperror; the HTTP layer translates those to status codes and tagged
// JSON results.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/payment"
	"github.com/snipmart/snipmart/internal/repository"
)

// CheckoutService opens hosted checkout sessions for products.
type CheckoutService struct {
	products repository.ProductRepository
	provider payment.Provider
	baseURL  string
	logger   *slog.Logger
}

// NewCheckoutService creates a CheckoutService. baseURL is the public
// origin of this app, used to build the success and cancel redirect
// targets.
func NewCheckoutService(
	products repository.ProductRepository,
	provider payment.Provider,
	baseURL string,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		products: products,
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// CheckoutIntent is the successful outcome of Initiate: where to send
// the buyer.
type CheckoutIntent struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// descriptionPlaceholder stands in for products without a description;
// the provider rejects empty line-item descriptions.
const descriptionPlaceholder = "Code snippet"

// Initiate loads the product and opens a one-time-payment checkout
// session carrying productID and userID as session metadata.
//
// The product's price is already an integer in minor currency units, so
// it maps directly onto the provider's unit amount. A free product has
// nothing to check out and is rejected. Exactly one provider call is
// made; transient provider failures surface to the caller, which is the
// retry mechanism.
func (s *CheckoutService) Initiate(ctx context.Context, productID, userID string) (*CheckoutIntent, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperror.ValidationFailed("productId", "product id is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user id is required")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	// The parser guarantees a title and a non-negative price; checkout
	// additionally needs a price to charge.
	if product.Price <= 0 {
		return nil, apperror.ValidationFailed("price",
			"product "+productID+" has no purchasable price")
	}

	description := product.Description
	if description == "" {
		description = descriptionPlaceholder
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payment.CreateSessionParams{
		LineItem: payment.LineItem{
			Name:        product.Title,
			Description: description,
			ImageURL:    product.ImageURL,
			UnitAmount:  product.Price,
			Currency:    "usd",
			Quantity:    1,
		},
		SuccessURL: s.baseURL + "/api/checkout/fulfill?session_id=" + payment.SessionIDPlaceholder,
		CancelURL:  s.baseURL + "/products/" + productID,
		Metadata: map[string]string{
			payment.MetaProductID: productID,
			payment.MetaUserID:    userID,
		},
	})
	if err != nil {
		s.logger.Error("creating checkout session failed",
			slog.String("productID", productID),
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("initiating checkout for product %s: %w", productID, err)
	}

	if session.URL == "" {
		return nil, apperror.Integrity("payment provider returned a session without a checkout URL")
	}

	s.logger.Info("checkout session created",
		slog.String("sessionID", session.ID),
		slog.String("productID", productID),
		slog.String("userID", userID),
		slog.Int64("unitAmount", product.Price),
	)

	return &CheckoutIntent{SessionID: session.ID, URL: session.URL}, nil
}
