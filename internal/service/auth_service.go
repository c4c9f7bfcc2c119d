package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/auth"
	"github.com/spec-kit/intake-desk/internal/config"
	apperrors "github.com/spec-kit/intake-desk/pkg/util/errorutil"
)

// AdminAuthService authenticates the desk's single admin principal.
type AdminAuthService struct {
	username     string
	passwordHash string
	tokenMgr     *auth.TokenManager
	logger       *zap.Logger
}

// NewAdminAuthService builds the service. Without a configured password
// every login is refused.
func NewAdminAuthService(cfg config.AuthConfig, tokens *auth.TokenManager, logger *zap.Logger) (*AdminAuthService, error) {
	hash, err := auth.AdminHash(cfg.AdminPasswordHash, cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	if hash == "" {
		logger.Warn("no admin password configured; admin login disabled")
	}
	return &AdminAuthService{
		username:     cfg.AdminUser,
		passwordHash: hash,
		tokenMgr:     tokens,
		logger:       logger,
	}, nil
}

// Login checks the credentials and issues an access token.
func (s *AdminAuthService) Login(_ context.Context, username, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperrors.NewUnauthorized("admin login disabled")
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.username)) == 1
	passErr := auth.ComparePassword(s.passwordHash, password)
	if !userOK || passErr != nil {
		s.logger.Warn("admin login rejected", zap.String("username", username))
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(s.username)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("admin logged in", zap.String("username", s.username))
	return token, exp, nil
}
