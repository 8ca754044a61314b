package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/model"
)

func newProductFixture(t *testing.T) (*ProductService, *mockProductRepo, *mockUserRepo) {
	t.Helper()
	products := newMockProductRepo()
	users := newMockUserRepo()
	return NewProductService(products, users, testLogger()), products, users
}

func validInput() ProductInput {
	return ProductInput{
		Title:       "Debounce hook",
		Description: "A React hook that debounces a value.",
		PriceMajor:  4.99,
		Files: []model.ProductFile{
			{Path: "useDebounce.ts", Code: "export function useDebounce() {}"},
		},
	}
}

func TestPriceToMinorUnits(t *testing.T) {
	tests := []struct {
		major float64
		want  int64
	}{
		{0, 0},
		{5, 500},
		{4.99, 499},
		{0.1, 10},
		{12.34, 1234},
		{19.999, 2000},
	}
	for _, tt := range tests {
		if got := PriceToMinorUnits(tt.major); got != tt.want {
			t.Errorf("PriceToMinorUnits(%v) = %d, want %d", tt.major, got, tt.want)
		}
	}
}

func TestProductCreate(t *testing.T) {
	svc, _, _ := newProductFixture(t)

	p, err := svc.Create(context.Background(), "u1", validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" {
		t.Error("created product has no id")
	}
	if p.Price != 499 {
		t.Errorf("Price = %d, want 499", p.Price)
	}
	if p.OwnerID != "u1" {
		t.Errorf("OwnerID = %q, want u1", p.OwnerID)
	}
}

func TestProductCreate_Validation(t *testing.T) {
	svc, _, _ := newProductFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ProductInput)
	}{
		{"empty title", func(in *ProductInput) { in.Title = "  " }},
		{"title too long", func(in *ProductInput) { in.Title = strings.Repeat("x", MaxTitleLength+1) }},
		{"description too long", func(in *ProductInput) { in.Description = strings.Repeat("x", MaxDescriptionLength+1) }},
		{"negative price", func(in *ProductInput) { in.PriceMajor = -1 }},
		{"file without path", func(in *ProductInput) { in.Files[0].Path = "" }},
		{"file code too long", func(in *ProductInput) { in.Files[0].Code = strings.Repeat("x", MaxFileCodeLength+1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			if _, err := svc.Create(ctx, "u1", in); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}

	if _, err := svc.Create(ctx, "", validInput()); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("missing owner: error = %v, want ErrValidation", err)
	}
}

func TestProductList(t *testing.T) {
	svc, products, _ := newProductFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedProduct(t, products, &model.Product{Title: "A", OwnerID: "u1", Price: 100})
	}
	seedProduct(t, products, &model.Product{Title: "B", OwnerID: "u2", Price: 100})

	all, err := svc.List(ctx, 0, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("len(all) = %d, want 4", len(all))
	}

	mine, err := svc.List(ctx, 0, "u2")
	if err != nil {
		t.Fatalf("List(owner) error = %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("len(mine) = %d, want 1", len(mine))
	}

	capped, err := svc.List(ctx, 2, "")
	if err != nil {
		t.Fatalf("List(limit) error = %v", err)
	}
	if len(capped) != 2 {
		t.Errorf("len(capped) = %d, want 2", len(capped))
	}
}

func TestProductUpdate_Authorization(t *testing.T) {
	svc, products, users := newProductFixture(t)
	ctx := context.Background()

	owner := seedUser(t, users, &model.User{Email: "owner@example.com"})
	other := seedUser(t, users, &model.User{Email: "other@example.com"})
	admin := seedUser(t, users, &model.User{Email: "admin@example.com", Role: model.RoleAdmin})
	p := seedProduct(t, products, &model.Product{Title: "Old", OwnerID: owner.ID, Price: 100})

	in := validInput()

	if _, err := svc.Update(ctx, other.ID, p.ID, in); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-owner update: error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Update(ctx, "", p.ID, in); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("anonymous update: error = %v, want ErrUnauthorized", err)
	}

	updated, err := svc.Update(ctx, owner.ID, p.ID, in)
	if err != nil {
		t.Fatalf("owner update: error = %v", err)
	}
	if updated.Title != in.Title {
		t.Errorf("Title = %q, want %q", updated.Title, in.Title)
	}

	if _, err := svc.Update(ctx, admin.ID, p.ID, in); err != nil {
		t.Errorf("admin update: error = %v", err)
	}
}

func TestProductDelete(t *testing.T) {
	svc, products, users := newProductFixture(t)
	ctx := context.Background()

	owner := seedUser(t, users, &model.User{Email: "owner@example.com"})
	other := seedUser(t, users, &model.User{Email: "other@example.com"})
	p := seedProduct(t, products, &model.Product{Title: "Doomed", OwnerID: owner.ID})

	if err := svc.Delete(ctx, other.ID, p.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-owner delete: error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, owner.ID, p.ID); err != nil {
		t.Fatalf("owner delete: error = %v", err)
	}
	if _, err := svc.GetByID(ctx, p.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
}

func TestProductGetByID_EmptyID(t *testing.T) {
	svc, _, _ := newProductFixture(t)
	if _, err := svc.GetByID(context.Background(), " "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
