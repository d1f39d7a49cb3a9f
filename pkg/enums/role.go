package enums

import "slices"

// Role is the account-level role carried in access tokens.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var roles = []Role{RoleUser, RoleManager, RoleAdmin}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	return slices.Contains(roles, r)
}

func ParseRole(value string) (Role, error) {
	return parse("role", roles, value)
}

// Capability names a single permission checked per route.
type Capability string

const (
	CapabilityShop          Capability = "shop"
	CapabilityOrdersRead    Capability = "orders:read"
	CapabilityOrdersReadAll Capability = "orders:read_all"
	CapabilityOrdersFulfill Capability = "orders:fulfill"
	CapabilityCatalogWrite  Capability = "catalog:write"
	CapabilityCouponsManage Capability = "coupons:manage"
)

var staffCapabilities = capabilitySet(
	CapabilityOrdersRead,
	CapabilityOrdersReadAll,
	CapabilityOrdersFulfill,
	CapabilityCatalogWrite,
	CapabilityCouponsManage,
)

// roleCapabilities is fixed at build time.
var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleUser:    capabilitySet(CapabilityShop, CapabilityOrdersRead),
	RoleManager: staffCapabilities,
	RoleAdmin:   staffCapabilities,
}

func capabilitySet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Can reports whether the role holds the capability.
func (r Role) Can(capability Capability) bool {
	_, ok := roleCapabilities[r][capability]
	return ok
}
