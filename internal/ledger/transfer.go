package ledger

import (
	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

// Transfer moves amount from the sender to to.
func (l *Ledger) Transfer(tx *chain.Tx, to types.Address, amount sdkmath.Int) (bool, error) {
	if err := l.checkTransfer(to, amount); err != nil {
		return false, err
	}
	if err := l.move(tx, tx.Sender(), to, amount); err != nil {
		return false, err
	}
	return true, nil
}

// Approve sets the amount spender may move out of the sender's balance.
func (l *Ledger) Approve(tx *chain.Tx, spender types.Address, amount sdkmath.Int) error {
	if spender.IsZero() {
		return errorsmod.Wrap(types.ErrInvalidArgument, "spender is empty")
	}
	if amount.IsNil() || amount.IsNegative() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "allowance must not be negative")
	}
	owner := tx.Sender()
	before := l.Allowance(owner, spender)
	l.setAllowance(tx, owner, spender, amount)
	tx.Emit(types.NewEvent(l.component, "approval",
		types.Attr("owner", owner),
		types.Attr("spender", spender),
		types.Attr("allowance_before", before),
		types.Attr("allowance_after", amount),
	))
	return nil
}

// TransferFrom moves amount from from to to, spending the sender's allowance.
func (l *Ledger) TransferFrom(tx *chain.Tx, from, to types.Address, amount sdkmath.Int) (bool, error) {
	if err := l.checkTransfer(to, amount); err != nil {
		return false, err
	}
	spender := tx.Sender()
	allowance := l.Allowance(from, spender)
	if allowance.LT(amount) {
		return false, errorsmod.Wrapf(types.ErrInsufficientAllowance,
			"%s may spend %s of %s's %s, needs %s", spender, allowance, from, l.symbol, amount)
	}
	if bal := l.BalanceOf(from); bal.LT(amount) {
		return false, errorsmod.Wrapf(types.ErrInsufficientBalance,
			"%s holds %s %s, needs %s", from, bal, l.symbol, amount)
	}

	l.setAllowance(tx, from, spender, allowance.Sub(amount))
	if err := l.move(tx, from, to, amount); err != nil {
		return false, err
	}
	return true, nil
}

// Mint creates amount new tokens for to. Requires MINTER_ROLE and an unpaused ledger.
func (l *Ledger) Mint(tx *chain.Tx, to types.Address, amount sdkmath.Int) error {
	if err := l.requireRole(tx, types.RoleMinter); err != nil {
		return err
	}
	if l.paused {
		return errorsmod.Wrapf(types.ErrInvalidState, "%s is paused", l.symbol)
	}
	if to.IsZero() {
		return errorsmod.Wrap(types.ErrInvalidArgument, "mint recipient is empty")
	}
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "mint amount must be positive")
	}

	balBefore, supplyBefore := l.BalanceOf(to), l.totalSupply
	// Every balance is bounded by the supply, so capping the supply keeps credits in range.
	supplyAfter, err := supplyBefore.SafeAdd(amount)
	if err != nil {
		return errorsmod.Wrapf(types.ErrInvalidAmount, "minting %s would overflow %s supply %s", amount, l.symbol, supplyBefore)
	}
	l.credit(tx, to, amount)
	l.setSupply(tx, supplyAfter)
	tx.Emit(types.NewEvent(l.component, "mint",
		types.Attr("to", to),
		types.Attr("amount", amount),
		types.Attr("to_balance_before", balBefore),
		types.Attr("to_balance_after", l.BalanceOf(to)),
		types.Attr("supply_before", supplyBefore),
		types.Attr("supply_after", l.totalSupply),
	))
	return nil
}

// Burn destroys amount of the sender's own tokens. Permitted while paused.
func (l *Ledger) Burn(tx *chain.Tx, amount sdkmath.Int) error {
	return l.burn(tx, tx.Sender(), amount)
}

// BurnFrom destroys amount of from's tokens, spending the sender's allowance.
func (l *Ledger) BurnFrom(tx *chain.Tx, from types.Address, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "burn amount must be positive")
	}
	spender := tx.Sender()
	allowance := l.Allowance(from, spender)
	if allowance.LT(amount) {
		return errorsmod.Wrapf(types.ErrInsufficientAllowance,
			"%s may burn %s of %s's %s, needs %s", spender, allowance, from, l.symbol, amount)
	}
	if err := l.burn(tx, from, amount); err != nil {
		return err
	}
	l.setAllowance(tx, from, spender, allowance.Sub(amount))
	return nil
}

func (l *Ledger) burn(tx *chain.Tx, from types.Address, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "burn amount must be positive")
	}
	balBefore := l.BalanceOf(from)
	if balBefore.LT(amount) {
		return errorsmod.Wrapf(types.ErrInsufficientBalance,
			"%s holds %s %s, cannot burn %s", from, balBefore, l.symbol, amount)
	}

	supplyBefore := l.totalSupply
	l.debit(tx, from, amount)
	l.setSupply(tx, supplyBefore.Sub(amount))
	tx.Emit(types.NewEvent(l.component, "burn",
		types.Attr("from", from),
		types.Attr("amount", amount),
		types.Attr("from_balance_before", balBefore),
		types.Attr("from_balance_after", l.BalanceOf(from)),
		types.Attr("supply_before", supplyBefore),
		types.Attr("supply_after", l.totalSupply),
	))
	return nil
}

// RegisterReceiver installs a receive hook for the sender's account.
func (l *Ledger) RegisterReceiver(tx *chain.Tx, r Receiver) error {
	if r == nil {
		return errorsmod.Wrap(types.ErrInvalidArgument, "receiver is nil")
	}
	account := tx.Sender()
	prev, had := l.receivers[account]
	l.receivers[account] = r
	tx.OnRevert(func() {
		if had {
			l.receivers[account] = prev
		} else {
			delete(l.receivers, account)
		}
	})
	return nil
}

// UnregisterReceiver removes the sender's receive hook, if any.
func (l *Ledger) UnregisterReceiver(tx *chain.Tx) {
	account := tx.Sender()
	prev, had := l.receivers[account]
	if !had {
		return
	}
	delete(l.receivers, account)
	tx.OnRevert(func() { l.receivers[account] = prev })
}

func (l *Ledger) checkTransfer(to types.Address, amount sdkmath.Int) error {
	if l.paused {
		return errorsmod.Wrapf(types.ErrInvalidState, "%s is paused", l.symbol)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "transfer amount must be positive")
	}
	if to.IsZero() {
		return errorsmod.Wrap(types.ErrInvalidArgument, "transfer recipient is empty")
	}
	return nil
}

// move debits from and credits to, then runs to's receive hook. The balances are
// final before the hook runs.
func (l *Ledger) move(tx *chain.Tx, from, to types.Address, amount sdkmath.Int) error {
	fromBefore := l.BalanceOf(from)
	if fromBefore.LT(amount) {
		return errorsmod.Wrapf(types.ErrInsufficientBalance,
			"%s holds %s %s, needs %s", from, fromBefore, l.symbol, amount)
	}
	toBefore := l.BalanceOf(to)

	if from != to {
		l.debit(tx, from, amount)
		l.credit(tx, to, amount)
	}
	tx.Emit(types.NewEvent(l.component, "transfer",
		types.Attr("from", from),
		types.Attr("to", to),
		types.Attr("amount", amount),
		types.Attr("from_balance_before", fromBefore),
		types.Attr("from_balance_after", l.BalanceOf(from)),
		types.Attr("to_balance_before", toBefore),
		types.Attr("to_balance_after", l.BalanceOf(to)),
	))

	if r, ok := l.receivers[to]; ok {
		return tx.Call(to, func() error {
			return r.OnReceive(tx, l.address, from, amount)
		})
	}
	return nil
}
