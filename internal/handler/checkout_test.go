package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipmart/snipmart/internal/model"
)

func TestCheckoutHandler_Initiate(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.seedUser(t, &model.User{Email: "buyer@example.com"})
	p := env.seedProduct(t, &model.Product{Title: "Snippet", Price: 500})

	t.Run("success", func(t *testing.T) {
		body := `{"productId":"` + p.ID + `"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(body)), buyer.ID)
		rr := httptest.NewRecorder()

		env.checkoutH.HandleInitiate(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.NotEmpty(t, res["sessionId"])
		assert.Contains(t, res["url"], "https://checkout.example.com/")
	})

	t.Run("requires auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(`{"productId":"x"}`))
		rr := httptest.NewRecorder()

		env.checkoutH.HandleInitiate(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown product", func(t *testing.T) {
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(`{"productId":"ghost"}`)), buyer.ID)
		rr := httptest.NewRecorder()

		env.checkoutH.HandleInitiate(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("free product", func(t *testing.T) {
		free := env.seedProduct(t, &model.Product{Title: "Free", Price: 0})
		body := `{"productId":"` + free.ID + `"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(body)), buyer.ID)
		rr := httptest.NewRecorder()

		env.checkoutH.HandleInitiate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCheckoutHandler_Fulfill(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.seedUser(t, &model.User{Email: "buyer@example.com"})
	p := env.seedProduct(t, &model.Product{Title: "Snippet", Price: 500})

	initiate := func(t *testing.T) string {
		t.Helper()
		body := `{"productId":"` + p.ID + `"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(body)), buyer.ID)
		rr := httptest.NewRecorder()
		env.checkoutH.HandleInitiate(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var res map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		return res["sessionId"]
	}

	fulfill := func(t *testing.T, sessionID string) map[string]any {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/checkout/fulfill?session_id="+sessionID, nil)
		rr := httptest.NewRecorder()
		env.checkoutH.HandleFulfill(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var res map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		return res
	}

	t.Run("success grants entitlement", func(t *testing.T) {
		sessionID := initiate(t)
		res := fulfill(t, sessionID)

		assert.Equal(t, true, res["success"])
		assert.Equal(t, p.ID, res["productId"])
		assert.Equal(t, buyer.ID, res["userId"])

		user, err := env.users.GetByID(context.Background(), buyer.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{p.ID}, user.Purchases)
	})

	t.Run("replay is idempotent", func(t *testing.T) {
		sessionID := initiate(t)
		fulfill(t, sessionID)
		res := fulfill(t, sessionID)

		assert.Equal(t, true, res["success"])
		assert.Equal(t, true, res["alreadyFulfilled"])

		user, err := env.users.GetByID(context.Background(), buyer.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{p.ID}, user.Purchases)
	})

	t.Run("unknown session reports failure without leaking detail", func(t *testing.T) {
		res := fulfill(t, "cs_test_bogus")

		assert.Equal(t, false, res["success"])
		assert.NotContains(t, res["error"], "cs_test_bogus")
	})

	t.Run("missing session id", func(t *testing.T) {
		res := fulfill(t, "")
		assert.Equal(t, false, res["success"])
	})
}
