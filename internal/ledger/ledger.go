/*

Package ledger implements a fungible token balance table with role-based access control,
a pause gate, burning and historical balance snapshots. All amounts are base units with
18 fractional digits.

*/

package ledger

import (
	"sort"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/logger"
	"github.com/elys-network/ammcore/internal/types"
)

// Receiver is notified after the ledger credits its account through a transfer.
// Contract-like accounts (and tests probing reentrancy) register one.
type Receiver interface {
	OnReceive(tx *chain.Tx, token types.Address, from types.Address, amount sdkmath.Int) error
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(tx *chain.Tx, token types.Address, from types.Address, amount sdkmath.Int) error

func (f ReceiverFunc) OnReceive(tx *chain.Tx, token types.Address, from types.Address, amount sdkmath.Int) error {
	return f(tx, token, from, amount)
}

// Config describes a ledger at deployment.
type Config struct {
	Symbol        string
	Name          string
	InitialSupply sdkmath.Int // base units credited to the deployer
}

type Ledger struct {
	address   types.Address
	symbol    string
	name      string
	component string
	logger    zerolog.Logger

	balances    map[types.Address]sdkmath.Int
	allowances  map[types.Address]map[types.Address]sdkmath.Int
	totalSupply sdkmath.Int

	roles      map[types.Role]map[types.Address]struct{}
	roleAdmins map[types.Role]types.Role
	paused     bool

	snapshotID         uint64
	accountCheckpoints map[types.Address]*checkpoints
	supplyCheckpoints  *checkpoints

	receivers map[types.Address]Receiver
}

// New deploys a ledger inside tx. The sender becomes the holder of every role and
// receives the full initial supply.
func New(tx *chain.Tx, cfg Config) (*Ledger, error) {
	if cfg.Symbol == "" {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "ledger symbol is empty")
	}
	supply := cfg.InitialSupply
	if supply.IsNil() {
		supply = sdkmath.ZeroInt()
	}
	if supply.IsNegative() {
		return nil, errorsmod.Wrapf(types.ErrInvalidAmount, "initial supply %s is negative", supply)
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Symbol
	}

	l := &Ledger{
		address:            chain.NewAddress("ledger", cfg.Symbol),
		symbol:             cfg.Symbol,
		name:               name,
		component:          "ledger/" + cfg.Symbol,
		logger:             logger.GetForComponent("ledger").With().Str("symbol", cfg.Symbol).Logger(),
		balances:           make(map[types.Address]sdkmath.Int),
		allowances:         make(map[types.Address]map[types.Address]sdkmath.Int),
		totalSupply:        sdkmath.ZeroInt(),
		roles:              make(map[types.Role]map[types.Address]struct{}),
		roleAdmins:         make(map[types.Role]types.Role),
		accountCheckpoints: make(map[types.Address]*checkpoints),
		supplyCheckpoints:  &checkpoints{},
		receivers:          make(map[types.Address]Receiver),
	}
	for _, role := range types.KnownRoles {
		l.roleAdmins[role] = types.RoleAdmin
		l.roles[role] = make(map[types.Address]struct{})
	}

	deployer := tx.Sender()
	for _, role := range types.KnownRoles {
		l.grant(tx, role, deployer)
	}
	if supply.IsPositive() {
		l.credit(tx, deployer, supply)
		l.setSupply(tx, supply)
		tx.Emit(types.NewEvent(l.component, "mint",
			types.Attr("to", deployer),
			types.Attr("amount", supply),
			types.Attr("to_balance_before", sdkmath.ZeroInt()),
			types.Attr("to_balance_after", supply),
			types.Attr("supply_before", sdkmath.ZeroInt()),
			types.Attr("supply_after", supply),
		))
	}

	l.logger.Debug().
		Str("deployer", deployer.String()).
		Str("initial_supply", supply.String()).
		Msg("Ledger deployed")
	return l, nil
}

// Address returns the ledger's own address.
func (l *Ledger) Address() types.Address { return l.address }

// Symbol returns the ticker symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Name returns the display name.
func (l *Ledger) Name() string { return l.name }

// Decimals is always 18.
func (l *Ledger) Decimals() int { return types.Decimals }

// Paused reports whether transfers and mints are blocked.
func (l *Ledger) Paused() bool { return l.paused }

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() sdkmath.Int { return l.totalSupply }

// BalanceOf returns the current balance of account.
func (l *Ledger) BalanceOf(account types.Address) sdkmath.Int {
	if bal, ok := l.balances[account]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// Allowance returns how much spender may still move on behalf of owner.
func (l *Ledger) Allowance(owner, spender types.Address) sdkmath.Int {
	if amt, ok := l.allowances[owner][spender]; ok {
		return amt
	}
	return sdkmath.ZeroInt()
}

// Accounts returns every account that has ever held a balance, sorted.
func (l *Ledger) Accounts() []types.Address {
	out := make([]types.Address, 0, len(l.balances))
	for a := range l.balances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SumBalances adds up every balance. It equals TotalSupply whenever the ledger is consistent.
func (l *Ledger) SumBalances() sdkmath.Int {
	sum := sdkmath.ZeroInt()
	for _, bal := range l.balances {
		sum = sum.Add(bal)
	}
	return sum
}

// Info summarizes the ledger for the API.
func (l *Ledger) Info() types.TokenInfo {
	return types.TokenInfo{
		Symbol:      l.symbol,
		Name:        l.name,
		Address:     l.address,
		Decimals:    types.Decimals,
		TotalSupply: l.totalSupply,
		Paused:      l.paused,
		SnapshotID:  l.snapshotID,
	}
}

// --- journaled setters ---

func (l *Ledger) setBalance(tx *chain.Tx, account types.Address, value sdkmath.Int) {
	prev, had := l.balances[account]
	l.balances[account] = value
	tx.OnRevert(func() {
		if had {
			l.balances[account] = prev
		} else {
			delete(l.balances, account)
		}
	})
}

func (l *Ledger) setSupply(tx *chain.Tx, value sdkmath.Int) {
	l.updateSupplyCheckpoint(tx)
	prev := l.totalSupply
	l.totalSupply = value
	tx.OnRevert(func() { l.totalSupply = prev })
}

func (l *Ledger) credit(tx *chain.Tx, account types.Address, amount sdkmath.Int) {
	l.updateAccountCheckpoint(tx, account)
	l.setBalance(tx, account, l.BalanceOf(account).Add(amount))
}

func (l *Ledger) debit(tx *chain.Tx, account types.Address, amount sdkmath.Int) {
	l.updateAccountCheckpoint(tx, account)
	l.setBalance(tx, account, l.BalanceOf(account).Sub(amount))
}

func (l *Ledger) setAllowance(tx *chain.Tx, owner, spender types.Address, value sdkmath.Int) {
	spenders, ok := l.allowances[owner]
	if !ok {
		spenders = make(map[types.Address]sdkmath.Int)
		l.allowances[owner] = spenders
	}
	prev, had := spenders[spender]
	spenders[spender] = value
	tx.OnRevert(func() {
		if had {
			spenders[spender] = prev
		} else {
			delete(spenders, spender)
		}
	})
}
