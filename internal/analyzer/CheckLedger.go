/*

This file contains the consistency checks run after every transaction. Each check is a
chain.Invariant, so a violation reverts the transaction that caused it.

*/

package analyzer

import (
	"errors"
	"fmt"

	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/logger"
	"github.com/elys-network/ammcore/internal/types"
)

var ErrSupplyMismatch = errors.New("balances do not sum to total supply")
var ErrShareMismatch = errors.New("share balances do not sum to total shares")
var ErrCustodyShortfall = errors.New("custody is below accounted amount")
var ErrStakeMismatch = errors.New("stake positions do not sum to total staked")
var ErrProductDecreased = errors.New("reserve product decreased without a liquidity change")

// SupplyView is what the conservation check reads from a ledger.
type SupplyView interface {
	Symbol() string
	TotalSupply() math.Int
	SumBalances() math.Int
}

// BalanceView reads custody balances.
type BalanceView interface {
	Symbol() string
	BalanceOf(account types.Address) math.Int
}

// LedgerConservation checks that a ledger's balances sum to its total supply.
func LedgerConservation(l SupplyView) chain.Invariant {
	return chain.InvariantFunc{
		Label: "ledger-conservation/" + l.Symbol(),
		Fn: func() error {
			supply, sum := l.TotalSupply(), l.SumBalances()
			if !supply.Equal(sum) {
				return fail(ErrSupplyMismatch, "%s: supply %s, balances %s", l.Symbol(), supply, sum)
			}
			return nil
		},
	}
}

// fail joins the sentinel with a detail message and logs the violation.
func fail(sentinel error, format string, args ...any) error {
	err := errors.Join(sentinel, fmt.Errorf(format, args...))
	log := logger.GetForComponent("invariants")
	log.Error().Err(err).Msg("Invariant violated")
	return err
}
