package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/auth"
	"github.com/snipmart/snipmart/internal/service"
)

// CheckoutHandler starts checkouts and completes fulfillments.
type CheckoutHandler struct {
	checkout    *service.CheckoutService
	fulfillment *service.FulfillmentService
	logger      *slog.Logger
}

func NewCheckoutHandler(
	checkout *service.CheckoutService,
	fulfillment *service.FulfillmentService,
	logger *slog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, fulfillment: fulfillment, logger: logger}
}

type checkoutRequest struct {
	ProductID string `json:"productId"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// fulfillResponse is a tagged result: the provider redirects the buyer's
// browser here, so both outcomes answer 200 with a success flag instead
// of leaning on status codes.
type fulfillResponse struct {
	Success          bool   `json:"success"`
	ProductID        string `json:"productId,omitempty"`
	UserID           string `json:"userId,omitempty"`
	AlreadyFulfilled bool   `json:"alreadyFulfilled,omitempty"`
	Error            string `json:"error,omitempty"`
}

// HandleInitiate creates a hosted checkout session for a product and
// returns the URL to redirect the buyer to.
//
// HTTP: POST /api/checkout {"productId"}
func (h *CheckoutHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(h.logger, w, apperror.Unauthorized("authentication required"))
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, err)
		return
	}

	intent, err := h.checkout.Initiate(r.Context(), req.ProductID, userID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, checkoutResponse{
		SessionID: intent.SessionID,
		URL:       intent.URL,
	})
}

// HandleFulfill verifies a returned checkout session and grants the
// entitlement. Replays of an already-handled session succeed.
//
// HTTP: GET /api/checkout/fulfill?session_id=cs_xxx
func (h *CheckoutHandler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	result, err := h.fulfillment.Fulfill(r.Context(), sessionID)
	if err != nil {
		h.logger.Warn("fulfillment failed",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
		writeJSON(h.logger, w, http.StatusOK, fulfillResponse{
			Success: false,
			Error:   fulfillErrorMessage(err),
		})
		return
	}

	writeJSON(h.logger, w, http.StatusOK, fulfillResponse{
		Success:          true,
		ProductID:        result.ProductID,
		UserID:           result.UserID,
		AlreadyFulfilled: result.AlreadyFulfilled,
	})
}

// fulfillErrorMessage picks a buyer-facing message. Validation problems
// can be shown as-is; anything upstream or internal gets a generic one.
func fulfillErrorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrValidation) {
		return appErr.Message
	}
	return "purchase could not be verified, please contact support"
}
