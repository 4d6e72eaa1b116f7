package types

import "strings"

// Address identifies an account or a deployed component on the chain.
type Address string

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a Address) String() string {
	return string(a)
}

// Role names a capability in a ledger's access control table.
type Role string

const (
	RoleAdmin    Role = "ADMIN_ROLE"
	RoleMinter   Role = "MINTER_ROLE"
	RolePauser   Role = "PAUSER_ROLE"
	RoleSnapshot Role = "SNAPSHOT_ROLE"
)

// KnownRoles lists every role a ledger understands.
var KnownRoles = []Role{RoleAdmin, RoleMinter, RolePauser, RoleSnapshot}

// ParseRole accepts both "MINTER_ROLE" and "minter".
func ParseRole(s string) (Role, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasSuffix(name, "_ROLE") {
		name += "_ROLE"
	}
	for _, r := range KnownRoles {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}
