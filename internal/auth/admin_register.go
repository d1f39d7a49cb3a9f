package auth

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// AdminRegisterService creates staff accounts. The route is only mounted
// outside production.
type AdminRegisterService interface {
	Register(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error)
}

type AdminRegisterServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type adminRegisterService struct {
	accounts
}

func NewAdminRegisterService(params AdminRegisterServiceParams) (AdminRegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &adminRegisterService{accounts: newAccounts(params.DB, params.PasswordConfig)}, nil
}

// Register does not issue a token; staff log in through the normal flow.
func (s *adminRegisterService) Register(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error) {
	switch req.Role {
	case enums.RoleManager, enums.RoleAdmin:
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "role must be %s or %s", enums.RoleManager, enums.RoleAdmin)
	}
	user, err := s.create(ctx, users.CreateUserDTO{Name: req.Name, Email: req.Email, Role: req.Role}, req.Password)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}
