package ledger

import (
	"sort"

	errorsmod "cosmossdk.io/errors"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

// HasRole reports whether account holds role.
func (l *Ledger) HasRole(role types.Role, account types.Address) bool {
	_, ok := l.roles[role][account]
	return ok
}

// RoleAdmin returns the role whose holders may grant and revoke role.
func (l *Ledger) RoleAdmin(role types.Role) (types.Role, bool) {
	admin, ok := l.roleAdmins[role]
	return admin, ok
}

// Members lists the holders of role, sorted.
func (l *Ledger) Members(role types.Role) []types.Address {
	out := make([]types.Address, 0, len(l.roles[role]))
	for a := range l.roles[role] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GrantRole gives role to account. The sender must hold the role's admin role.
// Granting a role the account already holds is a no-op.
func (l *Ledger) GrantRole(tx *chain.Tx, role types.Role, account types.Address) error {
	admin, err := l.checkRoleChange(tx, role, account)
	if err != nil {
		return err
	}
	if l.grant(tx, role, account) {
		l.logger.Debug().
			Str("role", string(role)).
			Str("account", account.String()).
			Str("admin_role", string(admin)).
			Str("sender", tx.Sender().String()).
			Msg("Role granted")
	}
	return nil
}

// RevokeRole takes role away from account. The sender must hold the role's admin role.
func (l *Ledger) RevokeRole(tx *chain.Tx, role types.Role, account types.Address) error {
	if _, err := l.checkRoleChange(tx, role, account); err != nil {
		return err
	}
	if l.revoke(tx, role, account) {
		l.logger.Debug().
			Str("role", string(role)).
			Str("account", account.String()).
			Str("sender", tx.Sender().String()).
			Msg("Role revoked")
	}
	return nil
}

// RenounceRole drops role from the sender's own account.
func (l *Ledger) RenounceRole(tx *chain.Tx, role types.Role) error {
	if _, ok := l.roleAdmins[role]; !ok {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "unknown role %q", role)
	}
	if l.revoke(tx, role, tx.Sender()) {
		l.logger.Debug().
			Str("role", string(role)).
			Str("account", tx.Sender().String()).
			Msg("Role renounced")
	}
	return nil
}

// Pause blocks transfers and mints. Requires PAUSER_ROLE.
func (l *Ledger) Pause(tx *chain.Tx) error {
	return l.setPaused(tx, true)
}

// Unpause lifts a previous Pause. Requires PAUSER_ROLE.
func (l *Ledger) Unpause(tx *chain.Tx) error {
	return l.setPaused(tx, false)
}

func (l *Ledger) setPaused(tx *chain.Tx, paused bool) error {
	if err := l.requireRole(tx, types.RolePauser); err != nil {
		return err
	}
	if l.paused == paused {
		if paused {
			return errorsmod.Wrapf(types.ErrInvalidState, "%s is already paused", l.symbol)
		}
		return errorsmod.Wrapf(types.ErrInvalidState, "%s is not paused", l.symbol)
	}

	prev := l.paused
	l.paused = paused
	tx.OnRevert(func() { l.paused = prev })

	kind := "paused"
	if !paused {
		kind = "unpaused"
	}
	tx.Emit(types.NewEvent(l.component, kind, types.Attr("account", tx.Sender())))
	l.logger.Debug().Str("sender", tx.Sender().String()).Bool("paused", paused).Msg("Pause state changed")
	return nil
}

func (l *Ledger) requireRole(tx *chain.Tx, role types.Role) error {
	if !l.HasRole(role, tx.Sender()) {
		return errorsmod.Wrapf(types.ErrAccessDenied, "account %s is missing role %s", tx.Sender(), role)
	}
	return nil
}

func (l *Ledger) checkRoleChange(tx *chain.Tx, role types.Role, account types.Address) (types.Role, error) {
	admin, ok := l.roleAdmins[role]
	if !ok {
		return "", errorsmod.Wrapf(types.ErrInvalidArgument, "unknown role %q", role)
	}
	if account.IsZero() {
		return "", errorsmod.Wrap(types.ErrInvalidArgument, "account is empty")
	}
	if err := l.requireRole(tx, admin); err != nil {
		return "", err
	}
	return admin, nil
}

func (l *Ledger) grant(tx *chain.Tx, role types.Role, account types.Address) bool {
	members := l.roles[role]
	if _, ok := members[account]; ok {
		return false
	}
	members[account] = struct{}{}
	tx.OnRevert(func() { delete(members, account) })
	tx.Emit(types.NewEvent(l.component, "role_granted",
		types.Attr("role", role),
		types.Attr("account", account),
		types.Attr("sender", tx.Sender()),
	))
	return true
}

func (l *Ledger) revoke(tx *chain.Tx, role types.Role, account types.Address) bool {
	members := l.roles[role]
	if _, ok := members[account]; !ok {
		return false
	}
	delete(members, account)
	tx.OnRevert(func() { members[account] = struct{}{} })
	tx.Emit(types.NewEvent(l.component, "role_revoked",
		types.Attr("role", role),
		types.Attr("account", account),
		types.Attr("sender", tx.Sender()),
	))
	return true
}
