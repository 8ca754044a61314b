package handler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/auth"
	"github.com/snipmart/snipmart/internal/docstore/sqlite"
	"github.com/snipmart/snipmart/internal/handler"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/payment"
	"github.com/snipmart/snipmart/internal/repository/docs"
	"github.com/snipmart/snipmart/internal/service"
)

// fakeProvider stands in for the hosted checkout: sessions created
// through it come back complete on retrieval.
type fakeProvider struct {
	mu       sync.Mutex
	sessions map[string]*payment.Session
	next     int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: make(map[string]*payment.Session)}
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, params payment.CreateSessionParams) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	id := fmt.Sprintf("cs_test_%d", p.next)
	sess := &payment.Session{
		ID:       id,
		URL:      "https://checkout.example.com/pay/" + id,
		Status:   payment.StatusComplete,
		Metadata: params.Metadata,
	}
	p.sessions[id] = sess
	return sess, nil
}

func (p *fakeProvider) RetrieveSession(_ context.Context, sessionID string) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[sessionID]
	if !ok {
		return nil, apperror.Remote("payment provider", fmt.Errorf("no such session %q", sessionID))
	}
	return sess, nil
}

// testEnv wires the full stack over an in-memory document store, the
// same shape the server package assembles in production.
type testEnv struct {
	products     *docs.ProductRepo
	users        *docs.UserRepo
	provider     *fakeProvider
	productH     *handler.ProductHandler
	checkoutH    *handler.CheckoutHandler
	authH        *handler.AuthHandler
	authSvc      *service.AuthService
	entitlements *service.EntitlementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	products := docs.NewProductRepo(db)
	users := docs.NewUserRepo(db)
	fulfillments := docs.NewFulfillmentRepo(db)
	provider := newFakeProvider()

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789abcdef")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(4)
	github := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback")

	productSvc := service.NewProductService(products, users, logger)
	entitlementSvc := service.NewEntitlementService(users, logger)
	checkoutSvc := service.NewCheckoutService(products, provider, "https://shop.example.com", logger)
	fulfillmentSvc := service.NewFulfillmentService(provider, users, fulfillments, logger)
	authSvc := service.NewAuthService(users, tokens, passwords, logger)

	return &testEnv{
		products:     products,
		users:        users,
		provider:     provider,
		productH:     handler.NewProductHandler(productSvc, entitlementSvc, logger),
		checkoutH:    handler.NewCheckoutHandler(checkoutSvc, fulfillmentSvc, logger),
		authH:        handler.NewAuthHandler(authSvc, github, logger),
		authSvc:      authSvc,
		entitlements: entitlementSvc,
	}
}

func (e *testEnv) seedProduct(t *testing.T, p *model.Product) *model.Product {
	t.Helper()
	require.NoError(t, e.products.Create(context.Background(), p))
	return p
}

func (e *testEnv) seedUser(t *testing.T, u *model.User) *model.User {
	t.Helper()
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

// asUser injects an authenticated identity, the way the auth middleware
// would after validating a token.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.ContextWithUserID(r.Context(), userID))
}
