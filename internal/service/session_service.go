package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/nexcart"
	"github.com/nexcart/storefront/internal/storage"
	apperrors "github.com/nexcart/storefront/pkg/errors"
)

// TokenIssuer exchanges credentials for backend tokens
type TokenIssuer interface {
	ObtainToken(ctx context.Context, username, password string) (nexcart.Tokens, error)
}

// SessionService signs the user in and out by writing tokens to shared storage.
// Cart stores watching the access token reload on their own.
type SessionService struct {
	issuer TokenIssuer
	store  storage.Store
	logger *zap.Logger
}

func NewSessionService(issuer TokenIssuer, store storage.Store, logger *zap.Logger) *SessionService {
	return &SessionService{issuer: issuer, store: store, logger: logger}
}

func (s *SessionService) Login(ctx context.Context, username, password string) error {
	if username == "" {
		return &apperrors.ErrValidation{Field: "username", Message: "username is required"}
	}
	if password == "" {
		return &apperrors.ErrValidation{Field: "password", Message: "password is required"}
	}

	tokens, err := s.issuer.ObtainToken(ctx, username, password)
	if err != nil {
		var apiErr *nexcart.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			return &apperrors.ErrUnauthorized{Message: apiErr.Detail}
		}
		return fmt.Errorf("failed to obtain token: %w", err)
	}

	if err := s.store.Set(ctx, storage.KeyRefreshToken, []byte(tokens.Refresh)); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	// written last: watchers reload on this key
	if err := s.store.Set(ctx, storage.KeyAccessToken, []byte(tokens.Access)); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	s.logger.Info("Signed in", zap.String("username", username))
	return nil
}

func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, storage.KeyAccessToken); err != nil {
		return fmt.Errorf("failed to remove access token: %w", err)
	}
	if err := s.store.Delete(ctx, storage.KeyRefreshToken); err != nil {
		return fmt.Errorf("failed to remove refresh token: %w", err)
	}
	s.logger.Info("Signed out")
	return nil
}

// SignedIn reports whether an access token is stored
func (s *SessionService) SignedIn(ctx context.Context) (bool, error) {
	token, err := storage.TokenSource{Store: s.store}.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}
