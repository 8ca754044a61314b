package docs

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/docstore"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo stores users as documents in the "users" collection.
type UserRepo struct {
	store docstore.Store
}

func NewUserRepo(store docstore.Store) *UserRepo {
	return &UserRepo{store: store}
}

// Create persists a new user, generating their id when empty.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	if user.Purchases == nil {
		user.Purchases = []string{}
	}
	if err := r.store.Set(ctx, usersCollection, user.ID, user.Doc()); err != nil {
		return fmt.Errorf("creating user %s: %w", user.ID, storeErr(err, "user", user.ID))
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.store.Get(ctx, usersCollection, id)
	if err != nil {
		return nil, storeErr(err, "user", id)
	}
	return model.UserFromDoc(doc.ID, doc.Fields)
}

// GetByEmail looks a user up by email. Emails are unique in practice
// (registration refuses duplicates) but the store has no constraint, so
// the query is limited to one document.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	docsList, err := r.store.Query(ctx, usersCollection, docstore.Query{
		Field:  "email",
		Equals: email,
		Limit:  1,
	})
	if err != nil {
		return nil, storeErr(err, "user", email)
	}
	if len(docsList) == 0 {
		return nil, apperror.NotFound("user", email)
	}
	return model.UserFromDoc(docsList[0].ID, docsList[0].Fields)
}

// UpsertGitHub inserts or updates a user keyed by GitHub ID. First login
// creates the account; later logins refresh login, email, and avatar in
// case they changed on GitHub.
func (r *UserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	docsList, err := r.store.Query(ctx, usersCollection, docstore.Query{
		Field:  "githubId",
		Equals: user.GitHubID,
		Limit:  1,
	})
	if err != nil {
		return storeErr(err, "user", user.Login)
	}

	if len(docsList) > 0 {
		existing, err := model.UserFromDoc(docsList[0].ID, docsList[0].Fields)
		if err != nil {
			return err
		}
		existing.Login = user.Login
		existing.AvatarURL = user.AvatarURL
		if user.Email != "" {
			existing.Email = user.Email
		}
		if err := r.store.Set(ctx, usersCollection, existing.ID, existing.Doc()); err != nil {
			return fmt.Errorf("updating user %s: %w", existing.ID, storeErr(err, "user", existing.ID))
		}
		*user = *existing
		return nil
	}

	return r.Create(ctx, user)
}

// AddPurchase adds productID to the user's purchases set.
//
// The whole read-modify-write runs inside the store's atomic Update, so
// two near-simultaneous fulfillments for the same user cannot clobber
// each other, and a product already present is left alone. The boolean
// reports whether the set actually grew.
func (r *UserRepo) AddPurchase(ctx context.Context, userID, productID string) (bool, error) {
	added := false
	err := r.store.Update(ctx, usersCollection, userID, func(fields map[string]any) (map[string]any, error) {
		user, err := model.UserFromDoc(userID, fields)
		if err != nil {
			return nil, err
		}
		if user.HasPurchased(productID) {
			return fields, nil
		}

		purchases := make([]any, 0, len(user.Purchases)+1)
		for _, pid := range user.Purchases {
			purchases = append(purchases, pid)
		}
		purchases = append(purchases, productID)
		fields["purchases"] = purchases
		added = true
		return fields, nil
	})
	if err != nil {
		return false, storeErr(err, "user", userID)
	}
	return added, nil
}
