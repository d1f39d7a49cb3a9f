package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the login controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
}

type passwordVerifier interface {
	Verify(password, encoded string) (bool, error)
}

// rehasher and hashStore are optional. When both the hasher and the repository
// provide them, logins upgrade hashes made with older cost settings.
type rehasher interface {
	NeedsRehash(encoded string) bool
	Hash(password string) (string, error)
}

type hashStore interface {
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type service struct {
	users  userRepository
	hasher passwordVerifier
	jwtCfg config.JWTConfig
	now    func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo  userRepository
	Hasher    passwordVerifier
	JWTConfig config.JWTConfig
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	return &service{users: params.UserRepo, hasher: params.Hasher, jwtCfg: params.JWTConfig, now: time.Now}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.FindByEmail(ctx, users.NormalizeEmail(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	s.upgradeHash(ctx, user, req.Password)
	return issueToken(s.jwtCfg, now, user)
}

// upgradeHash is best effort; the login already succeeded.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	re, ok := s.hasher.(rehasher)
	if !ok || !re.NeedsRehash(user.PasswordHash) {
		return
	}
	store, ok := s.users.(hashStore)
	if !ok {
		return
	}
	hash, err := re.Hash(password)
	if err != nil {
		return
	}
	if err := store.UpdatePasswordHash(ctx, user.ID, hash); err == nil {
		user.PasswordHash = hash
	}
}

func issueToken(cfg config.JWTConfig, now time.Time, user *models.User) (*TokenResponse, error) {
	token, err := pkgAuth.MintAccessToken(cfg, now, pkgAuth.AccessTokenPayload{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &TokenResponse{AccessToken: token, User: users.FromModel(user)}, nil
}
