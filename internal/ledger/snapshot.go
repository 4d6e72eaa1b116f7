package ledger

import (
	"sort"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

// checkpoints records, per snapshot id, the value as it stood when that snapshot
// was taken. Entries are only written the first time a value changes after a
// snapshot, so ids are strictly increasing.
type checkpoints struct {
	ids    []uint64
	values []sdkmath.Int
}

// lookup returns the value captured for snapshot id. ok is false when nothing has
// changed since id, in which case the current value applies.
func (c *checkpoints) lookup(id uint64) (sdkmath.Int, bool) {
	idx := sort.Search(len(c.ids), func(i int) bool { return c.ids[i] >= id })
	if idx == len(c.ids) {
		return sdkmath.Int{}, false
	}
	return c.values[idx], true
}

func (c *checkpoints) latest() uint64 {
	if len(c.ids) == 0 {
		return 0
	}
	return c.ids[len(c.ids)-1]
}

func (c *checkpoints) push(tx *chain.Tx, id uint64, value sdkmath.Int) {
	c.ids = append(c.ids, id)
	c.values = append(c.values, value)
	n := len(c.ids) - 1
	tx.OnRevert(func() {
		c.ids = c.ids[:n]
		c.values = c.values[:n]
	})
}

// Snapshot freezes every balance and the total supply under a new id, which it
// returns. Ids start at 1. Requires SNAPSHOT_ROLE.
func (l *Ledger) Snapshot(tx *chain.Tx) (uint64, error) {
	if err := l.requireRole(tx, types.RoleSnapshot); err != nil {
		return 0, err
	}
	prev := l.snapshotID
	l.snapshotID++
	tx.OnRevert(func() { l.snapshotID = prev })

	tx.Emit(types.NewEvent(l.component, "snapshot",
		types.Attr("id", l.snapshotID),
		types.Attr("supply", l.totalSupply),
	))
	l.logger.Debug().Uint64("snapshot_id", l.snapshotID).Str("sender", tx.Sender().String()).Msg("Snapshot taken")
	return l.snapshotID, nil
}

// CurrentSnapshotID returns the id of the latest snapshot, 0 if none was taken.
func (l *Ledger) CurrentSnapshotID() uint64 { return l.snapshotID }

// BalanceOfAt returns account's balance as of snapshot id.
func (l *Ledger) BalanceOfAt(account types.Address, id uint64) (sdkmath.Int, error) {
	if err := l.checkSnapshotID(id); err != nil {
		return sdkmath.Int{}, err
	}
	if cp, ok := l.accountCheckpoints[account]; ok {
		if v, found := cp.lookup(id); found {
			return v, nil
		}
	}
	return l.BalanceOf(account), nil
}

// TotalSupplyAt returns the total supply as of snapshot id.
func (l *Ledger) TotalSupplyAt(id uint64) (sdkmath.Int, error) {
	if err := l.checkSnapshotID(id); err != nil {
		return sdkmath.Int{}, err
	}
	if v, found := l.supplyCheckpoints.lookup(id); found {
		return v, nil
	}
	return l.totalSupply, nil
}

func (l *Ledger) checkSnapshotID(id uint64) error {
	if id == 0 {
		return errorsmod.Wrap(types.ErrInvalidArgument, "snapshot id 0 does not exist")
	}
	if id > l.snapshotID {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "snapshot id %d does not exist yet", id)
	}
	return nil
}

// updateAccountCheckpoint must run before account's balance changes.
func (l *Ledger) updateAccountCheckpoint(tx *chain.Tx, account types.Address) {
	if l.snapshotID == 0 {
		return
	}
	cp, ok := l.accountCheckpoints[account]
	if !ok {
		cp = &checkpoints{}
		l.accountCheckpoints[account] = cp
		tx.OnRevert(func() { delete(l.accountCheckpoints, account) })
	}
	if cp.latest() < l.snapshotID {
		cp.push(tx, l.snapshotID, l.BalanceOf(account))
	}
}

func (l *Ledger) updateSupplyCheckpoint(tx *chain.Tx) {
	if l.snapshotID == 0 {
		return
	}
	if l.supplyCheckpoints.latest() < l.snapshotID {
		l.supplyCheckpoints.push(tx, l.snapshotID, l.totalSupply)
	}
}
