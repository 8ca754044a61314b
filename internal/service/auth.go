package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/auth"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/repository"
)

const minPasswordLength = 8

// AuthService handles registration and sign-in, for both email/password
// and federated GitHub accounts.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the account and its freshly issued bearer token so
// the handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an email/password account and signs it in.
//
// Emails are unique in practice: the store has no constraint, so this is
// the single write path that enforces it, by looking the email up first
// and refusing duplicates.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("user", email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking email %s: %w", email, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{Email: email, PasswordHash: hash, Purchases: []string{}}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user for %s: %w", email, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login verifies an email/password pair. Both an unknown email and a
// wrong password produce the same unauthorized error, so the response
// does not reveal which half was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("loading user %s: %w", email, err)
	}

	if user.PasswordHash == "" {
		// Federated-only account; there is no password to check.
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub completes the federated flow: upsert the account
// keyed by GitHub id, then sign it in.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, apperror.ValidationFailed("user", "GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Email:     strings.ToLower(ghUser.Email),
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("upserting GitHub user %d: %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return s.issue(user)
}

// Me returns the account behind a validated token's user id.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
