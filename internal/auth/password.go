package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for new password hashes.
const defaultCost = 12

// PasswordService provides bcrypt hashing and verification. The cost is
// injectable so tests can run at the minimum cost instead of paying
// ~250ms per hash.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom,
// usually minimal, bcrypt cost. Not for production use.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password. The returned string embeds the salt
// and cost, so it can be stored directly.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		// bcrypt silently truncates beyond 72 bytes; reject instead.
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext password against a stored hash. Returns nil
// on match. The comparison is constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
