package auth

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const uniqueEmailConstraint = "ux_users_email"

// RegisterService handles shopper sign-up.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
}

type registerService struct {
	accounts
	jwtCfg config.JWTConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		accounts: newAccounts(params.DB, params.PasswordConfig),
		jwtCfg:   params.JWTConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	if req.Password != req.PasswordConfirm {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password confirmation does not match")
	}
	user, err := s.create(ctx, users.CreateUserDTO{Name: req.Name, Email: req.Email, Role: enums.RoleUser}, req.Password)
	if err != nil {
		return nil, err
	}
	return issueToken(s.jwtCfg, time.Now().UTC(), user)
}

// accounts is the credential-creation path shared by shopper and staff sign-up.
type accounts struct {
	db     *db.Client
	hasher *security.Hasher
}

func newAccounts(client *db.Client, cfg config.PasswordConfig) accounts {
	return accounts{db: client, hasher: security.NewHasher(cfg)}
}

// create hashes the password outside the transaction, then checks the email
// and inserts under one. The unique index is the final arbiter under races.
func (a accounts) create(ctx context.Context, dto users.CreateUserDTO, password string) (*models.User, error) {
	dto.Email = users.NormalizeEmail(dto.Email)
	if dto.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(dto.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(password) < security.MinPasswordLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "password must be at least %d characters", security.MinPasswordLength)
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	dto.PasswordHash = hash

	var created *models.User
	err = a.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		taken, err := repo.EmailTaken(ctx, dto.Email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		user, err := repo.Create(ctx, dto)
		if err != nil {
			if pkgerrors.IsUniqueViolation(err, uniqueEmailConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
