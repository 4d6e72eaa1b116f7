package pool

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/simulations"
	"github.com/elys-network/ammcore/internal/types"
)

// AddLiquidity deposits both amounts from the sender and mints LP shares. The sender
// must have approved the pool on both ledgers. The full amounts are taken even when
// they are off the pool ratio; the excess stays in the reserves.
func (p *Pool) AddLiquidity(tx *chain.Tx, amountA, amountB math.Int) (math.Int, error) {
	est, err := simulations.SimulateJoinPool(p.reserveA, p.reserveB, p.totalShares, amountA, amountB)
	if err != nil {
		return math.Int{}, err
	}

	provider := tx.Sender()
	reserveA, reserveB, total := p.reserveA, p.reserveB, p.totalShares

	p.setReserves(tx, est.NewReserveA, est.NewReserveB)
	p.setShares(tx, provider, p.BalanceOf(provider).Add(est.ShareAmountOut), est.NewTotalShares)
	tx.Emit(types.NewEvent(p.component, "liquidity_added",
		types.Attr("provider", provider),
		types.Attr("amount_a", amountA),
		types.Attr("amount_b", amountB),
		types.Attr("shares_minted", est.ShareAmountOut),
		types.Attr("reserve_a_before", reserveA),
		types.Attr("reserve_a_after", p.reserveA),
		types.Attr("reserve_b_before", reserveB),
		types.Attr("reserve_b_after", p.reserveB),
		types.Attr("total_shares_before", total),
		types.Attr("total_shares_after", p.totalShares),
	))

	if err := p.pull(tx, p.tokenA, provider, amountA); err != nil {
		return math.Int{}, err
	}
	if err := p.pull(tx, p.tokenB, provider, amountB); err != nil {
		return math.Int{}, err
	}

	p.logger.Debug().
		Str("provider", provider.String()).
		Str("shares", est.ShareAmountOut.String()).
		Msg("Liquidity added")
	return est.ShareAmountOut, nil
}

// RemoveLiquidity burns shares from the sender and pays out the proportional reserves.
// Shares and reserves are updated before any asset leaves the pool.
func (p *Pool) RemoveLiquidity(tx *chain.Tx, shares math.Int) (math.Int, math.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return math.Int{}, math.Int{}, errorsmod.Wrap(types.ErrInvalidAmount, "share amount must be positive")
	}
	provider := tx.Sender()
	held := p.BalanceOf(provider)
	if held.LT(shares) {
		return math.Int{}, math.Int{}, errorsmod.Wrapf(types.ErrInsufficientBalance,
			"%s holds %s shares, cannot redeem %s", provider, held, shares)
	}

	est, err := simulations.SimulateLeavePool(p.reserveA, p.reserveB, p.totalShares, shares)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}

	reserveA, reserveB, total := p.reserveA, p.reserveB, p.totalShares
	p.setShares(tx, provider, held.Sub(shares), est.NewTotalShares)
	p.setReserves(tx, est.NewReserveA, est.NewReserveB)
	tx.Emit(types.NewEvent(p.component, "liquidity_removed",
		types.Attr("provider", provider),
		types.Attr("shares_burned", shares),
		types.Attr("amount_a", est.AmountAOut),
		types.Attr("amount_b", est.AmountBOut),
		types.Attr("reserve_a_before", reserveA),
		types.Attr("reserve_a_after", p.reserveA),
		types.Attr("reserve_b_before", reserveB),
		types.Attr("reserve_b_after", p.reserveB),
		types.Attr("total_shares_before", total),
		types.Attr("total_shares_after", p.totalShares),
	))

	if err := p.pay(tx, p.tokenA, provider, est.AmountAOut); err != nil {
		return math.Int{}, math.Int{}, err
	}
	if err := p.pay(tx, p.tokenB, provider, est.AmountBOut); err != nil {
		return math.Int{}, math.Int{}, err
	}

	p.logger.Debug().
		Str("provider", provider.String()).
		Str("amount_a", est.AmountAOut.String()).
		Str("amount_b", est.AmountBOut.String()).
		Msg("Liquidity removed")
	return est.AmountAOut, est.AmountBOut, nil
}
