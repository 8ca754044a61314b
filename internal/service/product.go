package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/repository"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 5000
	MaxFileCodeLength    = 100000
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// ProductService handles the catalog: creating, listing, and editing
// products.
type ProductService struct {
	products repository.ProductRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewProductService(
	products repository.ProductRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{products: products, users: users, logger: logger}
}

// ProductInput is the caller-supplied shape for create and update.
// PriceMajor is the price in major currency units (e.g. dollars).
type ProductInput struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	ImageURL     string              `json:"imageUrl"`
	PriceMajor   float64             `json:"price"`
	InstallSteps []string            `json:"installSteps"`
	Files        []model.ProductFile `json:"files"`
}

// PriceToMinorUnits converts a major-unit price to integer minor units.
// Rounding, not truncating, keeps fractional-cent inputs from
// systematically underpricing the product.
func PriceToMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

func (s *ProductService) validate(in *ProductInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperror.ValidationFailed("title", "product title is required")
	}
	if len(in.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("product title must be %d characters or less", MaxTitleLength))
	}
	if len(in.Description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	if in.PriceMajor < 0 {
		return apperror.ValidationFailed("price", "price must not be negative")
	}
	for _, f := range in.Files {
		if strings.TrimSpace(f.Path) == "" {
			return apperror.ValidationFailed("files", "every file needs a path")
		}
		if len(f.Code) > MaxFileCodeLength {
			return apperror.ValidationFailed("files",
				fmt.Sprintf("file %s exceeds %d characters", f.Path, MaxFileCodeLength))
		}
	}
	return nil
}

// Create validates and saves a new product owned by ownerID.
func (s *ProductService) Create(ctx context.Context, ownerID string, in ProductInput) (*model.Product, error) {
	if ownerID == "" {
		return nil, apperror.ValidationFailed("ownerId", "owner is required")
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	product := &model.Product{
		Title:        in.Title,
		Description:  strings.TrimSpace(in.Description),
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Price:        PriceToMinorUnits(in.PriceMajor),
		OwnerID:      ownerID,
		InstallSteps: in.InstallSteps,
		Files:        in.Files,
	}

	if err := s.products.Create(ctx, product); err != nil {
		s.logger.Error("failed to create product",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating product: %w", err)
	}

	s.logger.Info("product created",
		slog.String("id", product.ID),
		slog.String("title", product.Title),
		slog.Int64("price", product.Price),
	)
	return product, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "product id is required")
	}
	return s.products.GetByID(ctx, id)
}

// List returns products newest first. limit is clamped to a sane range;
// ownerID narrows the listing when non-empty.
func (s *ProductService) List(ctx context.Context, limit int, ownerID string) ([]model.Product, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	products, err := s.products.List(ctx, repository.ListOptions{OwnerID: ownerID, Limit: limit})
	if err != nil {
		s.logger.Error("failed to list products", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// Update replaces an existing product's editable fields. Only the owner
// or an admin may edit.
func (s *ProductService) Update(ctx context.Context, callerID, id string, in ProductInput) (*model.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, callerID, product); err != nil {
		return nil, err
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	product.Title = in.Title
	product.Description = strings.TrimSpace(in.Description)
	product.ImageURL = strings.TrimSpace(in.ImageURL)
	product.Price = PriceToMinorUnits(in.PriceMajor)
	product.InstallSteps = in.InstallSteps
	product.Files = in.Files

	if err := s.products.Update(ctx, product); err != nil {
		s.logger.Error("failed to update product",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating product %s: %w", id, err)
	}

	s.logger.Info("product updated", slog.String("id", product.ID))
	return product, nil
}

// Delete removes a product. Only the owner or an admin may delete.
func (s *ProductService) Delete(ctx context.Context, callerID, id string) error {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, callerID, product); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", slog.String("id", id))
	return nil
}

func (s *ProductService) authorize(ctx context.Context, callerID string, product *model.Product) error {
	if callerID == "" {
		return apperror.Unauthorized("authentication required")
	}
	if product.OwnerID == callerID {
		return nil
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("loading caller %s: %w", callerID, err)
	}
	if caller.IsAdmin() {
		return nil
	}
	return apperror.Forbidden("only the product owner may modify it")
}
