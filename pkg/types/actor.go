package types

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Actor is the authenticated caller a service acts on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// Can reports whether the actor's role grants capability.
func (a Actor) Can(capability enums.Capability) bool {
	return a.Role.Can(capability)
}

// Owns reports whether the actor is the given owner.
func (a Actor) Owns(ownerID uuid.UUID) bool {
	return a.UserID != uuid.Nil && a.UserID == ownerID
}
