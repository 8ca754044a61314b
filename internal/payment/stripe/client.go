// Package stripe implements payment.Provider against the Stripe
// Checkout REST API.
//
// The API is form-encoded on the way in and JSON on the way out. Only
// the two endpoints this app needs are covered: create a checkout
// session and retrieve one by id. The base URL is configurable so tests
// can point the client at an httptest server.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/payment"
)

const defaultBaseURL = "https://api.stripe.com"

var _ payment.Provider = (*Client)(nil)

// Client talks to the Stripe Checkout API with a secret key.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// New creates a Client. baseURL may be empty, in which case the public
// Stripe API is used.
func New(secretKey, baseURL string) (*Client, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe: secret key must not be empty")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// sessionResponse is the subset of the checkout session object we read.
type sessionResponse struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Status      string            `json:"status"`
	AmountTotal int64             `json:"amount_total"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckoutSession opens a single-item, one-time-payment hosted
// checkout session. One provider call, no retries; an Idempotency-Key
// header protects against the request being duplicated in transit.
func (c *Client) CreateCheckoutSession(ctx context.Context, params payment.CreateSessionParams) (*payment.Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)

	item := params.LineItem
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	currency := item.Currency
	if currency == "" {
		currency = "usd"
	}

	form.Set("line_items[0][quantity]", strconv.FormatInt(quantity, 10))
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
	form.Set("line_items[0][price_data][product_data][name]", item.Name)
	if item.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", item.Description)
	}
	if item.ImageURL != "" {
		form.Set("line_items[0][price_data][product_data][images][0]", item.ImageURL)
	}

	for key, value := range params.Metadata {
		form.Set("metadata["+key+"]", value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("stripe: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	return c.do(req)
}

// RetrieveSession fetches a checkout session by id.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*payment.Session, error) {
	if sessionID == "" {
		return nil, apperror.ValidationFailed("sessionId", "session id must not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("stripe: building request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*payment.Session, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Remote("payment provider", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.Remote("payment provider", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, apperror.Remote("payment provider",
				fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Message))
		}
		return nil, apperror.Remote("payment provider",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var sess sessionResponse
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, apperror.Remote("payment provider", fmt.Errorf("decoding session: %w", err))
	}
	if sess.ID == "" {
		return nil, apperror.Integrity("payment provider returned a session with no id")
	}

	return &payment.Session{
		ID:          sess.ID,
		URL:         sess.URL,
		Status:      sess.Status,
		AmountTotal: sess.AmountTotal,
		Currency:    sess.Currency,
		Metadata:    sess.Metadata,
	}, nil
}
