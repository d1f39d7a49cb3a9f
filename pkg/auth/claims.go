package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AccessTokenPayload is what a caller supplies when minting.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
}

// AccessTokenClaims is the body of a bearer token.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

var _ jwt.ClaimsValidator = (*AccessTokenClaims)(nil)

// Validate runs after the registered-claim checks during parsing.
func (c *AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token has no user id")
	}
	if c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid role %q", c.Role)
	}
	return nil
}
