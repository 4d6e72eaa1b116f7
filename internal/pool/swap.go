package pool

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/simulations"
	"github.com/elys-network/ammcore/internal/types"
)

// Swap sells amountIn of tokenIn for the other asset and returns the amount bought.
// The fee share of the input is set aside for the owner; the rest joins the reserves.
func (p *Pool) Swap(tx *chain.Tx, amountIn math.Int, tokenIn types.Address) (math.Int, error) {
	rIn, rOut, err := p.orient(tokenIn)
	if err != nil {
		return math.Int{}, err
	}
	est, err := simulations.SimulateSwap(rIn, rOut, amountIn, p.feeRateBps)
	if err != nil {
		return math.Int{}, err
	}
	if !est.ProductIncreased {
		return math.Int{}, errorsmod.Wrapf(types.ErrInvariantViolated,
			"swap of %s would decrease the reserve product", amountIn)
	}

	trader := tx.Sender()
	assetIn, assetOut := p.tokenA, p.tokenB
	newA, newB := est.NewReserveIn, est.NewReserveOut
	feesA, feesB := p.feesA.Add(est.FeeAmount), p.feesB
	if tokenIn == p.tokenB.Address() {
		assetIn, assetOut = p.tokenB, p.tokenA
		newA, newB = est.NewReserveOut, est.NewReserveIn
		feesA, feesB = p.feesA, p.feesB.Add(est.FeeAmount)
	}

	reserveA, reserveB := p.reserveA, p.reserveB
	p.setReserves(tx, newA, newB)
	p.setFees(tx, feesA, feesB)
	tx.Emit(types.NewEvent(p.component, "swap",
		types.Attr("trader", trader),
		types.Attr("token_in", assetIn.Address()),
		types.Attr("token_out", assetOut.Address()),
		types.Attr("amount_in", amountIn),
		types.Attr("amount_out", est.TokenOutAmount),
		types.Attr("fee", est.FeeAmount),
		types.Attr("reserve_a_before", reserveA),
		types.Attr("reserve_a_after", p.reserveA),
		types.Attr("reserve_b_before", reserveB),
		types.Attr("reserve_b_after", p.reserveB),
	))

	if err := p.pull(tx, assetIn, trader, amountIn); err != nil {
		return math.Int{}, err
	}
	if err := p.pay(tx, assetOut, trader, est.TokenOutAmount); err != nil {
		return math.Int{}, err
	}

	p.logger.Debug().
		Str("trader", trader.String()).
		Str("token_in", assetIn.Symbol()).
		Str("amount_in", amountIn.String()).
		Str("amount_out", est.TokenOutAmount.String()).
		Float64("slippage", est.Slippage).
		Msg("Swap executed")
	return est.TokenOutAmount, nil
}
