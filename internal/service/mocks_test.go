package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/payment"
	"github.com/snipmart/snipmart/internal/repository"
)

// Hand-written in-memory mocks for the repository and provider
// interfaces. They mirror the documented contracts (atomic, deduplicating
// AddPurchase; not-found errors) closely enough for the services to be
// tested without a database or network.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockProductRepo struct {
	mu       sync.Mutex
	products map[string]*model.Product
	nextID   int
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[string]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		m.nextID++
		p.ID = fmt.Sprintf("p%d", m.nextID)
	}
	stored := *p
	m.products[p.ID] = &stored
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, apperror.NotFound("product", id)
	}
	result := *p
	return &result, nil
}

func (m *mockProductRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Product
	for _, p := range m.products {
		if opts.OwnerID != "" && p.OwnerID != opts.OwnerID {
			continue
		}
		result = append(result, *p)
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return apperror.NotFound("product", p.ID)
	}
	stored := *p
	m.products[p.ID] = &stored
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return apperror.NotFound("product", id)
	}
	delete(m.products, id)
	return nil
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	next  int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		m.next++
		u.ID = fmt.Sprintf("u%d", m.next)
	}
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	result.Purchases = slices.Clone(u.Purchases)
	return &result, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) UpsertGitHub(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.GitHubID == u.GitHubID {
			existing.Login = u.Login
			existing.AvatarURL = u.AvatarURL
			if u.Email != "" {
				existing.Email = u.Email
			}
			*u = *existing
			return nil
		}
	}
	m.next++
	u.ID = fmt.Sprintf("u%d", m.next)
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) AddPurchase(_ context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, apperror.NotFound("user", userID)
	}
	if slices.Contains(u.Purchases, productID) {
		return false, nil
	}
	u.Purchases = append(u.Purchases, productID)
	return true, nil
}

type mockFulfillmentRepo struct {
	mu      sync.Mutex
	records map[string]*repository.Fulfillment
}

func newMockFulfillmentRepo() *mockFulfillmentRepo {
	return &mockFulfillmentRepo{records: make(map[string]*repository.Fulfillment)}
}

func (m *mockFulfillmentRepo) Record(_ context.Context, f *repository.Fulfillment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *f
	m.records[f.SessionID] = &stored
	return nil
}

func (m *mockFulfillmentRepo) Get(_ context.Context, sessionID string) (*repository.Fulfillment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.records[sessionID]
	if !ok {
		return nil, apperror.NotFound("fulfillment", sessionID)
	}
	result := *f
	return &result, nil
}

// mockProvider simulates the payment provider: sessions created through
// it are retrievable by id, mirroring the hosted-checkout round trip.
type mockProvider struct {
	mu        sync.Mutex
	sessions  map[string]*payment.Session
	created   []payment.CreateSessionParams
	createErr error
	next      int
}

func newMockProvider() *mockProvider {
	return &mockProvider{sessions: make(map[string]*payment.Session)}
}

func (m *mockProvider) CreateCheckoutSession(_ context.Context, params payment.CreateSessionParams) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}

	m.created = append(m.created, params)
	m.next++
	id := fmt.Sprintf("sess_%d", m.next)

	metadata := make(map[string]string, len(params.Metadata))
	for k, v := range params.Metadata {
		metadata[k] = v
	}
	sess := &payment.Session{
		ID:          id,
		URL:         "https://checkout.example.com/pay/" + id,
		Status:      payment.StatusComplete,
		AmountTotal: params.LineItem.UnitAmount,
		Currency:    "usd",
		Metadata:    metadata,
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *mockProvider) RetrieveSession(_ context.Context, sessionID string) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperror.Remote("payment provider",
			fmt.Errorf("no such checkout session %q", sessionID))
	}
	result := *sess
	return &result, nil
}

// addSession seeds a session directly, for fulfillment tests that do not
// go through Initiate.
func (m *mockProvider) addSession(t *testing.T, sess *payment.Session) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
}
