package simulations

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/ammcore/internal/types"
)

func assertInt(t *testing.T, want int64, got math.Int) {
	t.Helper()
	assert.Equal(t, math.NewInt(want).String(), got.String())
}

func TestSimulateSwap(t *testing.T) {
	// 1000/1000 pool, 100 in at 0.3%: eff = 99.7 -> floor 99; k = 1e6;
	// new out reserve = ceil(1e6/1099) = 910; out = 90.
	res, err := SimulateSwap(math.NewInt(1000), math.NewInt(1000), math.NewInt(100), 30)
	require.NoError(t, err)
	assertInt(t, 99, res.EffectiveAmount)
	assertInt(t, 1, res.FeeAmount)
	assertInt(t, 1099, res.NewReserveIn)
	assertInt(t, 910, res.NewReserveOut)
	assertInt(t, 90, res.TokenOutAmount)
	assert.True(t, res.ProductIncreased)
	assert.Greater(t, res.Slippage, 0.0)
	assert.Less(t, res.Slippage, 1.0)
}

func TestSimulateSwapNeverDecreasesProduct(t *testing.T) {
	reserveIn, reserveOut := math.NewInt(7_919), math.NewInt(104_729)
	for _, fee := range []uint32{0, 1, 30, 50, 1000} {
		for _, in := range []int64{1, 3, 17, 250, 4_999, 80_000} {
			res, err := SimulateSwap(reserveIn, reserveOut, math.NewInt(in), fee)
			if err != nil {
				require.ErrorIs(t, err, types.ErrInvalidAmount)
				continue
			}
			before := reserveIn.Mul(reserveOut)
			after := res.NewReserveIn.Mul(res.NewReserveOut)
			assert.True(t, after.GTE(before), "fee=%d in=%d", fee, in)
			assert.True(t, res.TokenOutAmount.LT(reserveOut))
		}
	}
}

func TestSimulateSwapErrors(t *testing.T) {
	_, err := SimulateSwap(math.NewInt(10), math.NewInt(10), math.ZeroInt(), 30)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = SimulateSwap(math.ZeroInt(), math.NewInt(10), math.NewInt(1), 30)
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	_, err = SimulateSwap(math.NewInt(10), math.NewInt(10), math.NewInt(1), 10_001)
	require.ErrorIs(t, err, types.ErrInvalidArgument)

	// dust swap rounds to nothing
	_, err = SimulateSwap(math.NewInt(1_000_000), math.NewInt(10), math.NewInt(1), 0)
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestSimulateJoinPool(t *testing.T) {
	first, err := SimulateJoinPool(math.ZeroInt(), math.ZeroInt(), math.ZeroInt(), math.NewInt(100), math.NewInt(400))
	require.NoError(t, err)
	assertInt(t, 200, first.ShareAmountOut)
	assertInt(t, 200, first.NewTotalShares)

	// proportional claim takes the smaller side
	next, err := SimulateJoinPool(math.NewInt(100), math.NewInt(400), math.NewInt(200), math.NewInt(50), math.NewInt(100))
	require.NoError(t, err)
	assertInt(t, 50, next.ShareAmountOut)
	assertInt(t, 150, next.NewReserveA)
	assertInt(t, 500, next.NewReserveB)

	_, err = SimulateJoinPool(math.ZeroInt(), math.ZeroInt(), math.ZeroInt(), math.ZeroInt(), math.NewInt(1))
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = SimulateJoinPool(math.NewInt(1_000_000), math.NewInt(1_000_000), math.NewInt(10), math.NewInt(1), math.NewInt(1))
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestSimulateLeavePool(t *testing.T) {
	res, err := SimulateLeavePool(math.NewInt(300), math.NewInt(600), math.NewInt(300), math.NewInt(100))
	require.NoError(t, err)
	assertInt(t, 100, res.AmountAOut)
	assertInt(t, 200, res.AmountBOut)
	assertInt(t, 200, res.NewTotalShares)

	all, err := SimulateLeavePool(math.NewInt(300), math.NewInt(600), math.NewInt(300), math.NewInt(300))
	require.NoError(t, err)
	assert.True(t, all.NewReserveA.IsZero())
	assert.True(t, all.NewReserveB.IsZero())

	_, err = SimulateLeavePool(math.NewInt(300), math.NewInt(600), math.NewInt(300), math.NewInt(301))
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
	_, err = SimulateLeavePool(math.NewInt(300), math.NewInt(600), math.NewInt(300), math.ZeroInt())
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestIntSqrt(t *testing.T) {
	cases := map[int64]int64{0: 0, 1: 1, 3: 1, 4: 2, 99: 9, 100: 10, 1_000_001: 1000}
	for in, want := range cases {
		assert.Equal(t, math.NewInt(want).String(), IntSqrt(math.NewInt(in)).String(), "sqrt(%d)", in)
	}
	// 100e18 * 100e18 -> 100e18
	hundred := math.NewIntWithDecimal(100, 18)
	assert.True(t, hundred.Equal(IntSqrt(hundred.Mul(hundred))))
}

func TestSpotPrice(t *testing.T) {
	assert.True(t, math.LegacyNewDec(4).Equal(SpotPrice(math.NewInt(100), math.NewInt(400))))
	assert.True(t, SpotPrice(math.ZeroInt(), math.NewInt(400)).IsZero())
}

func TestLargeReservesNeverPanic(t *testing.T) {
	// Reserves near 2^255: the reserve product needs ~510 bits.
	huge := math.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 255))
	maxInt := math.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), math.MaxBitLen), big.NewInt(1)))

	swap, err := SimulateSwap(huge, huge, huge.QuoRaw(2), 30)
	require.NoError(t, err)
	assert.True(t, swap.TokenOutAmount.IsPositive())
	assert.True(t, swap.ProductIncreased)

	// The input reserve would leave the 256-bit range.
	_, err = SimulateSwap(maxInt, huge, maxInt, 0)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	first, err := SimulateJoinPool(math.ZeroInt(), math.ZeroInt(), math.ZeroInt(), maxInt, maxInt)
	require.NoError(t, err)
	assert.True(t, maxInt.Equal(first.ShareAmountOut))

	// A deposit against a tiny pool would mint more than 256 bits of shares.
	_, err = SimulateJoinPool(math.NewInt(1), math.NewInt(1), math.NewInt(1), maxInt.QuoRaw(2), maxInt.QuoRaw(2))
	require.NoError(t, err)
	_, err = SimulateJoinPool(math.NewInt(1), math.NewInt(1), huge, maxInt, maxInt)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	exit, err := SimulateLeavePool(maxInt, maxInt, maxInt, maxInt.QuoRaw(2))
	require.NoError(t, err)
	assert.True(t, exit.AmountAOut.Equal(maxInt.QuoRaw(2)))

	assert.True(t, SpotPrice(huge, maxInt).IsPositive())
}
