// Package auth provides bearer-token issuance and validation, password
// hashing, and the GitHub federated sign-in flow.
//
// Tokens are HS256 JWTs with the internal user id in the "sub" claim.
// The token itself is the caller's proof of identity; the app keeps the
// raw user id in context for its own document lookups rather than
// re-parsing claims downstream.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "snipmart"

// DefaultTokenTTL is the lifetime of an access token. After expiry the
// client signs in again; there is no refresh flow.
const DefaultTokenTTL = 24 * time.Hour

// TokenService signs and validates access tokens with a shared HMAC
// secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. The secret should be at least
// 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a signed token for userID with the default lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, DefaultTokenTTL)
}

// GenerateWithDuration issues a signed token with a custom lifetime.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string, returning the user id
// from the subject claim.
//
// Pinning the accepted algorithms prevents algorithm-confusion attacks;
// the issuer check rejects tokens minted by other apps sharing a secret
// by accident.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, nil
}
