package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/payment"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotForm map[string][]string
	var gotAuth, gotIdem string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		gotForm = r.PostForm

		json.NewEncoder(w).Encode(map[string]any{
			"id":     "sess_1",
			"url":    "https://checkout.example.com/pay/sess_1",
			"status": "open",
			"metadata": map[string]string{
				"productId": "p1",
				"userId":    "u1",
			},
		})
	}))
	defer srv.Close()

	client, err := New("sk_test_123", srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sess, err := client.CreateCheckoutSession(context.Background(), payment.CreateSessionParams{
		LineItem: payment.LineItem{
			Name:        "Snippet A",
			Description: "a snippet",
			UnitAmount:  500,
		},
		SuccessURL: "https://shop.example.com/done?session_id=" + payment.SessionIDPlaceholder,
		CancelURL:  "https://shop.example.com/cancel",
		Metadata:   map[string]string{"productId": "p1", "userId": "u1"},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}

	if sess.ID != "sess_1" {
		t.Errorf("ID = %q", sess.ID)
	}
	if sess.URL != "https://checkout.example.com/pay/sess_1" {
		t.Errorf("URL = %q", sess.URL)
	}

	if gotAuth != "Bearer sk_test_123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotIdem == "" {
		t.Error("expected an Idempotency-Key header")
	}

	checks := map[string]string{
		"mode":                                          "payment",
		"line_items[0][quantity]":                       "1",
		"line_items[0][price_data][currency]":           "usd",
		"line_items[0][price_data][unit_amount]":        "500",
		"line_items[0][price_data][product_data][name]": "Snippet A",
		"metadata[productId]":                           "p1",
		"metadata[userId]":                              "u1",
	}
	for key, want := range checks {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Errorf("form[%q] = %v, want %q", key, got, want)
		}
	}
	if got := gotForm["success_url"]; len(got) != 1 || got[0] != "https://shop.example.com/done?session_id={CHECKOUT_SESSION_ID}" {
		t.Errorf("success_url = %v, placeholder must be sent literally", got)
	}
}

func TestRetrieveSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/checkout/sessions/sess_1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":           "sess_1",
			"status":       "complete",
			"amount_total": 500,
			"currency":     "usd",
			"metadata":     map[string]string{"productId": "p1", "userId": "u1"},
		})
	}))
	defer srv.Close()

	client, err := New("sk_test_123", srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sess, err := client.RetrieveSession(context.Background(), "sess_1")
	if err != nil {
		t.Fatalf("RetrieveSession() error = %v", err)
	}
	if sess.Status != payment.StatusComplete {
		t.Errorf("Status = %q", sess.Status)
	}
	if sess.Metadata["productId"] != "p1" || sess.Metadata["userId"] != "u1" {
		t.Errorf("Metadata = %v", sess.Metadata)
	}
	if sess.AmountTotal != 500 {
		t.Errorf("AmountTotal = %d", sess.AmountTotal)
	}
}

func TestRetrieveSession_UnknownID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"type":    "invalid_request_error",
				"message": "No such checkout session",
			},
		})
	}))
	defer srv.Close()

	client, err := New("sk_test_123", srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.RetrieveSession(context.Background(), "sess_unknown")
	if err == nil {
		t.Fatal("RetrieveSession() should error for an unknown session")
	}
	if !errors.Is(err, apperror.ErrRemote) {
		t.Errorf("error = %v, want ErrRemote", err)
	}
}

func TestRetrieveSession_EmptyID(t *testing.T) {
	client, err := New("sk_test_123", "http://unused.invalid")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.RetrieveSession(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestNew_RequiresSecretKey(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Error("New() should reject an empty secret key")
	}
}

func TestProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client, err := New("sk_test_123", srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.RetrieveSession(context.Background(), "sess_1")
	if !errors.Is(err, apperror.ErrRemote) {
		t.Errorf("error = %v, want ErrRemote", err)
	}
}
