// Package access gates which caller principals may invoke which operations.
// This is independent of signature verification: the caller of an operation
// (a relayer) and the principal whose consent it carries are two different
// parties checked two different ways.
package access

// Role names a privilege a principal can hold.
type Role string

const (
	// RoleAdmin may grant and revoke roles. No self-escalation path exists:
	// only an existing admin can mint another.
	RoleAdmin Role = "admin"
	// RolePauser may open and close the per-registry circuit breakers.
	RolePauser Role = "pauser"
	// RoleSponsor may relay signed operations on behalf of principals.
	RoleSponsor Role = "sponsor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePauser, RoleSponsor:
		return true
	}
	return false
}

// Registry names a pausable registry.
type Registry string

const (
	RegistryIdentity       Registry = "identity"
	RegistryDataPermission Registry = "datapermission"
	RegistryAgreement      Registry = "agreement"
)

// Valid reports whether reg is a known registry.
func (reg Registry) Valid() bool {
	switch reg {
	case RegistryIdentity, RegistryDataPermission, RegistryAgreement:
		return true
	}
	return false
}
