package model

import (
	"slices"
	"time"

	"github.com/snipmart/snipmart/internal/apperror"
)

// RoleAdmin is the only role string with special meaning: admins can
// manage any product and view any content.
const RoleAdmin = "ADMIN"

// User is a registered account.
//
// ID matches the subject identifier issued at registration and carried in
// the bearer token. Purchases is a set of product ids represented as a
// list; repository code is responsible for keeping it duplicate-free.
//
// A user signs in either with email/password (PasswordHash set) or via
// GitHub OAuth (GitHubID set); both may be present if the accounts were
// linked by a shared email.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role,omitempty"`
	Purchases    []string  `json:"purchases"`
	GitHubID     int64     `json:"githubId,omitempty"`
	Login        string    `json:"login,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPurchased reports whether the user holds an entitlement for the
// given product.
func (u *User) HasPurchased(productID string) bool {
	return slices.Contains(u.Purchases, productID)
}

// IsAdmin reports whether the user carries the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserFromDoc parses a stored document into a User.
//
// A missing purchases field parses as an empty list, never nil semantics
// leaking upward. Any purchases entry that is not a string is an
// integrity error.
func UserFromDoc(id string, fields map[string]any) (*User, error) {
	if id == "" {
		return nil, apperror.Integrity("user document has no id")
	}

	u := &User{ID: id, Purchases: []string{}}
	u.Email, _ = docString(fields, "email")
	u.PasswordHash, _ = docString(fields, "passwordHash")
	u.Role, _ = docString(fields, "role")
	u.Login, _ = docString(fields, "login")
	u.AvatarURL, _ = docString(fields, "avatarUrl")
	u.CreatedAt = docTime(fields, "createdAt")
	u.UpdatedAt = docTime(fields, "updatedAt")

	if ghID, ok := docInt(fields, "githubId"); ok {
		u.GitHubID = ghID
	}

	if raw, present := fields["purchases"]; present {
		list, ok := raw.([]any)
		if !ok {
			return nil, apperror.Integrity("user " + id + " has a malformed purchases field")
		}
		for _, entry := range list {
			pid, ok := entry.(string)
			if !ok || pid == "" {
				return nil, apperror.Integrity("user " + id + " has a malformed purchases entry")
			}
			if !slices.Contains(u.Purchases, pid) {
				u.Purchases = append(u.Purchases, pid)
			}
		}
	}

	return u, nil
}

// Doc serializes the user into document fields.
func (u *User) Doc() map[string]any {
	purchases := make([]any, 0, len(u.Purchases))
	for _, pid := range u.Purchases {
		purchases = append(purchases, pid)
	}

	fields := map[string]any{
		"email":     u.Email,
		"purchases": purchases,
	}
	if u.PasswordHash != "" {
		fields["passwordHash"] = u.PasswordHash
	}
	if u.Role != "" {
		fields["role"] = u.Role
	}
	if u.GitHubID != 0 {
		fields["githubId"] = u.GitHubID
	}
	if u.Login != "" {
		fields["login"] = u.Login
	}
	if u.AvatarURL != "" {
		fields["avatarUrl"] = u.AvatarURL
	}
	return fields
}
