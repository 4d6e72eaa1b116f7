/*

Package simulations holds the constant-product arithmetic shared by pool execution and
read-only quotes. Every function is pure: it takes reserves and returns the outcome
without touching any ledger.

*/

package simulations

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/types"
)

// BpsDenominator is 100%, expressed in basis points.
const BpsDenominator = 10_000

// --- Result Types ---

// SwapEstimationResult contains the result of a swap simulation
type SwapEstimationResult struct {
	TokenOutAmount   math.Int `json:"token_out_amount"`
	EffectiveAmount  math.Int `json:"effective_amount"` // input after the fee, added to the input reserve
	FeeAmount        math.Int `json:"fee_amount"`       // retained outside the reserves
	NewReserveIn     math.Int `json:"new_reserve_in"`
	NewReserveOut    math.Int `json:"new_reserve_out"`
	Slippage         float64  `json:"slippage"` // price impact against the spot price, 0..1
	ProductIncreased bool     `json:"product_increased"`
}

// JoinPoolEstimationResult contains the result of a join pool simulation
type JoinPoolEstimationResult struct {
	ShareAmountOut math.Int `json:"share_amount_out"`
	AmountAIn      math.Int `json:"amount_a_in"` // full deposit; the side in excess of the pool ratio stays in reserves
	AmountBIn      math.Int `json:"amount_b_in"`
	NewReserveA    math.Int `json:"new_reserve_a"`
	NewReserveB    math.Int `json:"new_reserve_b"`
	NewTotalShares math.Int `json:"new_total_shares"`
}

// ExitPoolEstimationResult contains the result of an exit pool simulation
type ExitPoolEstimationResult struct {
	AmountAOut     math.Int `json:"amount_a_out"`
	AmountBOut     math.Int `json:"amount_b_out"`
	NewReserveA    math.Int `json:"new_reserve_a"`
	NewReserveB    math.Int `json:"new_reserve_b"`
	NewTotalShares math.Int `json:"new_total_shares"`
}

// --- Simulation Functions ---

// SimulateSwap prices amountIn against the reserves. The fee is taken from the input
// first; the output is rounded down so the product of the reserves never decreases.
func SimulateSwap(reserveIn, reserveOut, amountIn math.Int, feeRateBps uint32) (SwapEstimationResult, error) {
	if feeRateBps > BpsDenominator {
		return SwapEstimationResult{}, errorsmod.Wrapf(types.ErrInvalidArgument, "fee rate %d bps exceeds 100%%", feeRateBps)
	}
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return SwapEstimationResult{}, errorsmod.Wrap(types.ErrInvalidAmount, "swap amount must be positive")
	}
	if reserveIn.IsNil() || reserveOut.IsNil() || !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return SwapEstimationResult{}, errorsmod.Wrap(types.ErrInsufficientLiquidity, "pool has no liquidity")
	}

	effective, err := mulDiv(amountIn, math.NewInt(int64(BpsDenominator-feeRateBps)), math.NewInt(BpsDenominator))
	if err != nil {
		return SwapEstimationResult{}, err
	}
	fee := amountIn.Sub(effective)

	newReserveIn, err := safeAdd(reserveIn, effective)
	if err != nil {
		return SwapEstimationResult{}, err
	}
	// k = reserveIn*reserveOut may exceed 256 bits; only the quotient has to fit.
	newReserveOut, err := mulDivCeil(reserveIn, reserveOut, newReserveIn)
	if err != nil {
		return SwapEstimationResult{}, err
	}
	out := reserveOut.Sub(newReserveOut)
	if !out.IsPositive() {
		return SwapEstimationResult{}, errorsmod.Wrapf(types.ErrInvalidAmount, "swap of %s yields no output", amountIn)
	}

	return SwapEstimationResult{
		TokenOutAmount:   out,
		EffectiveAmount:  effective,
		FeeAmount:        fee,
		NewReserveIn:     newReserveIn,
		NewReserveOut:    newReserveOut,
		Slippage:         priceImpact(reserveIn, reserveOut, amountIn, out),
		ProductIncreased: product(newReserveIn, newReserveOut).Cmp(product(reserveIn, reserveOut)) >= 0,
	}, nil
}

// SimulateJoinPool computes the shares minted for depositing amountA and amountB.
// The first deposit mints the integer square root of amountA*amountB; later deposits
// mint the smaller of the two proportional claims.
func SimulateJoinPool(reserveA, reserveB, totalShares, amountA, amountB math.Int) (JoinPoolEstimationResult, error) {
	if amountA.IsNil() || amountB.IsNil() || !amountA.IsPositive() || !amountB.IsPositive() {
		return JoinPoolEstimationResult{}, errorsmod.Wrap(types.ErrInvalidAmount, "both deposit amounts must be positive")
	}

	var minted math.Int
	if totalShares.IsNil() || totalShares.IsZero() {
		// sqrt of a product of two 256-bit values always fits in 256 bits
		minted = math.NewIntFromBigInt(new(big.Int).Sqrt(product(amountA, amountB)))
	} else {
		if !reserveA.IsPositive() || !reserveB.IsPositive() {
			return JoinPoolEstimationResult{}, errorsmod.Wrap(types.ErrInsufficientLiquidity, "pool has shares but no reserves")
		}
		byA, err := mulDiv(amountA, totalShares, reserveA)
		if err != nil {
			return JoinPoolEstimationResult{}, err
		}
		byB, err := mulDiv(amountB, totalShares, reserveB)
		if err != nil {
			return JoinPoolEstimationResult{}, err
		}
		minted = math.MinInt(byA, byB)
	}
	if !minted.IsPositive() {
		return JoinPoolEstimationResult{}, errorsmod.Wrap(types.ErrInvalidAmount, "deposit too small to mint shares")
	}

	shares, err := safeAdd(orZero(totalShares), minted)
	if err != nil {
		return JoinPoolEstimationResult{}, err
	}
	newReserveA, err := safeAdd(orZero(reserveA), amountA)
	if err != nil {
		return JoinPoolEstimationResult{}, err
	}
	newReserveB, err := safeAdd(orZero(reserveB), amountB)
	if err != nil {
		return JoinPoolEstimationResult{}, err
	}
	return JoinPoolEstimationResult{
		ShareAmountOut: minted,
		AmountAIn:      amountA,
		AmountBIn:      amountB,
		NewReserveA:    newReserveA,
		NewReserveB:    newReserveB,
		NewTotalShares: shares,
	}, nil
}

// SimulateLeavePool computes the reserves paid out for redeeming shares.
func SimulateLeavePool(reserveA, reserveB, totalShares, shares math.Int) (ExitPoolEstimationResult, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return ExitPoolEstimationResult{}, errorsmod.Wrap(types.ErrInvalidAmount, "share amount must be positive")
	}
	if totalShares.IsNil() || totalShares.LT(shares) {
		return ExitPoolEstimationResult{}, errorsmod.Wrapf(types.ErrInsufficientLiquidity,
			"cannot redeem %s of %s outstanding shares", shares, orZero(totalShares))
	}

	outA, err := mulDiv(reserveA, shares, totalShares)
	if err != nil {
		return ExitPoolEstimationResult{}, err
	}
	outB, err := mulDiv(reserveB, shares, totalShares)
	if err != nil {
		return ExitPoolEstimationResult{}, err
	}
	return ExitPoolEstimationResult{
		AmountAOut:     outA,
		AmountBOut:     outB,
		NewReserveA:    reserveA.Sub(outA),
		NewReserveB:    reserveB.Sub(outB),
		NewTotalShares: totalShares.Sub(shares),
	}, nil
}

// SpotPrice returns reserveOut per unit of reserveIn, or zero for an empty pool.
func SpotPrice(reserveIn, reserveOut math.Int) math.LegacyDec {
	if reserveIn.IsNil() || reserveOut.IsNil() || !reserveIn.IsPositive() {
		return math.LegacyZeroDec()
	}
	q := new(big.Int).Mul(reserveOut.BigInt(), math.LegacyOneDec().BigInt())
	return math.LegacyNewDecFromBigIntWithPrec(q.Quo(q, reserveIn.BigInt()), math.LegacyPrecision)
}

// IntSqrt returns floor(sqrt(x)) for x >= 0.
func IntSqrt(x math.Int) math.Int {
	if x.IsNil() || !x.IsPositive() {
		return math.ZeroInt()
	}
	return math.NewIntFromBigInt(new(big.Int).Sqrt(x.BigInt()))
}

func product(a, b math.Int) *big.Int {
	return new(big.Int).Mul(a.BigInt(), b.BigInt())
}

// mulDiv returns floor(a*b/c) for positive c. The intermediate product is unbounded;
// a quotient wider than 256 bits is rejected as ErrInvalidAmount.
func mulDiv(a, b, c math.Int) (math.Int, error) {
	q := product(a, b)
	q.Quo(q, c.BigInt())
	return fromBig(q)
}

// mulDivCeil returns ceil(a*b/c) for non-negative a, b and positive c.
func mulDivCeil(a, b, c math.Int) (math.Int, error) {
	q, r := new(big.Int).QuoRem(product(a, b), c.BigInt(), new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return fromBig(q)
}

func safeAdd(a, b math.Int) (math.Int, error) {
	sum, err := a.SafeAdd(b)
	if err != nil {
		return math.Int{}, errorsmod.Wrapf(types.ErrInvalidAmount, "%s + %s overflows", a, b)
	}
	return sum, nil
}

func fromBig(x *big.Int) (math.Int, error) {
	if x.BitLen() > math.MaxBitLen {
		return math.Int{}, errorsmod.Wrap(types.ErrInvalidAmount, "result exceeds 256 bits")
	}
	return math.NewIntFromBigInt(x), nil
}

// priceImpact is 1 - (amountOut/amountIn) / (reserveOut/reserveIn), floored at zero.
func priceImpact(reserveIn, reserveOut, amountIn, amountOut math.Int) float64 {
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() || !amountIn.IsPositive() {
		return 0
	}
	ratio := new(big.Rat).SetFrac(product(amountOut, reserveIn), product(amountIn, reserveOut))
	impact := new(big.Rat).Sub(big.NewRat(1, 1), ratio)
	if impact.Sign() < 0 {
		return 0
	}
	f, _ := impact.Float64()
	return f
}

func orZero(x math.Int) math.Int {
	if x.IsNil() {
		return math.ZeroInt()
	}
	return x
}
