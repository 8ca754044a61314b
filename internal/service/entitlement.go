package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/repository"
)

// EntitlementService decides who may view a product's protected content:
// the install steps, file tree, and code listings.
type EntitlementService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewEntitlementService(users repository.UserRepository, logger *slog.Logger) *EntitlementService {
	return &EntitlementService{users: users, logger: logger}
}

// CanView reports whether the caller may see the product's protected
// content.
//
// Free products are open to everyone, including anonymous callers. A
// paid product requires an authenticated user whose purchases contain
// the product id; the product's owner and admins also pass. An unknown
// userID is treated as not entitled rather than an error, since a stale
// token should read as anonymous here.
func (s *EntitlementService) CanView(ctx context.Context, userID string, product *model.Product) (bool, error) {
	if product == nil {
		return false, apperror.ValidationFailed("product", "product is required")
	}
	if product.Free() {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("loading user %s for content gate: %w", userID, err)
	}

	if user.HasPurchased(product.ID) || user.IsAdmin() || (product.OwnerID != "" && product.OwnerID == user.ID) {
		return true, nil
	}
	return false, nil
}
