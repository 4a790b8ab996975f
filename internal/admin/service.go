package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/platform/sentinel"
	"certregistry/pkg/requestcontext"
)

// Service authenticates staff accounts and issues access tokens.
type Service struct {
	store  Store
	tokens *TokenService
	logger *slog.Logger
}

// NewService constructs the admin service.
func NewService(store Store, tokens *TokenService, logger *slog.Logger) *Service {
	return &Service{store: store, tokens: tokens, logger: logger}
}

// CreateUser registers a staff account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "username is required")
	}
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	u := &User{Username: username, PasswordHash: string(hash)}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin user")
	}

	s.logger.InfoContext(ctx, "admin user created", "username", username)
	return u, nil
}

// Login checks credentials and returns an access token. Unknown usernames and
// wrong passwords produce the same error so the endpoint does not leak which
// accounts exist.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.store.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "login attempt for unknown user",
				"username", username,
				"client_ip", requestcontext.ClientIP(ctx),
			)
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin user")
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.logger.WarnContext(ctx, "login attempt with wrong password",
			"username", username,
			"client_ip", requestcontext.ClientIP(ctx),
			"user_agent", requestcontext.UserAgent(ctx),
		)
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.Issue(u.Username)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logger.InfoContext(ctx, "admin logged in",
		"username", u.Username,
		"client_ip", requestcontext.ClientIP(ctx),
	)
	return token, nil
}

// Authenticate validates a bearer token and returns the staff username.
func (s *Service) Authenticate(tokenString string) (string, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}
