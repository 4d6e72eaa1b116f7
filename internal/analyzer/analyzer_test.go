package analyzer

import (
	"context"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

type fakeLedger struct {
	symbol   string
	supply   math.Int
	balances map[types.Address]math.Int
}

func (f *fakeLedger) Symbol() string { return f.symbol }
func (f *fakeLedger) TotalSupply() math.Int { return f.supply }
func (f *fakeLedger) BalanceOf(a types.Address) math.Int {
	if b, ok := f.balances[a]; ok {
		return b
	}
	return math.ZeroInt()
}
func (f *fakeLedger) SumBalances() math.Int {
	sum := math.ZeroInt()
	for _, b := range f.balances {
		sum = sum.Add(b)
	}
	return sum
}

type fakePool struct {
	state types.PoolState
	sum   math.Int
}

func (f *fakePool) State() types.PoolState { return f.state }
func (f *fakePool) SumShares() math.Int { return f.sum }

type fakeVault struct {
	total, sum math.Int
}

func (f *fakeVault) Address() types.Address { return "vault:STK-RWD" }
func (f *fakeVault) TotalStaked() math.Int { return f.total }
func (f *fakeVault) SumStakes() math.Int { return f.sum }

func newPool(rA, rB, shares, feesA, feesB int64) *fakePool {
	return &fakePool{
		state: types.PoolState{
			Address:     "pool:TKA-TKB",
			ReserveA:    math.NewInt(rA),
			ReserveB:    math.NewInt(rB),
			TotalShares: math.NewInt(shares),
			FeesA:       math.NewInt(feesA),
			FeesB:       math.NewInt(feesB),
		},
		sum: math.NewInt(shares),
	}
}

func TestLedgerConservation(t *testing.T) {
	l := &fakeLedger{symbol: "TKA", supply: math.NewInt(100), balances: map[types.Address]math.Int{
		"alice": math.NewInt(60),
		"bob":   math.NewInt(40),
	}}
	inv := LedgerConservation(l)
	assert.Equal(t, "ledger-conservation/TKA", inv.Name())
	require.NoError(t, inv.Check())

	l.balances["carol"] = math.NewInt(1)
	err := inv.Check()
	require.ErrorIs(t, err, ErrSupplyMismatch)
	assert.Contains(t, err.Error(), "supply 100, balances 101")
}

func TestPoolSharesAndCustody(t *testing.T) {
	p := newPool(100, 200, 50, 3, 0)
	tka := &fakeLedger{symbol: "TKA", balances: map[types.Address]math.Int{"pool:TKA-TKB": math.NewInt(103)}}
	tkb := &fakeLedger{symbol: "TKB", balances: map[types.Address]math.Int{"pool:TKA-TKB": math.NewInt(200)}}

	require.NoError(t, PoolShares(p).Check())
	require.NoError(t, PoolCustody(p, tka, tkb).Check())

	// a donation only raises custody
	tkb.balances["pool:TKA-TKB"] = math.NewInt(250)
	require.NoError(t, PoolCustody(p, tka, tkb).Check())

	tka.balances["pool:TKA-TKB"] = math.NewInt(102)
	require.ErrorIs(t, PoolCustody(p, tka, tkb).Check(), ErrCustodyShortfall)

	p.sum = math.NewInt(49)
	require.ErrorIs(t, PoolShares(p).Check(), ErrShareMismatch)
}

func TestProductMonitor(t *testing.T) {
	p := newPool(100, 100, 100, 0, 0)
	m := NewProductMonitor(p)
	assert.Equal(t, "pool-product/pool:TKA-TKB", m.Name())

	// a swap raises the product
	p.state.ReserveA, p.state.ReserveB = math.NewInt(110), math.NewInt(91)
	require.NoError(t, m.Check())
	require.NoError(t, m.Record(context.Background(), types.Receipt{}))

	// same shares, lower product
	p.state.ReserveA, p.state.ReserveB = math.NewInt(100), math.NewInt(100)
	require.ErrorIs(t, m.Check(), ErrProductDecreased)

	// liquidity removal changes shares, so a lower product is fine
	p.state.TotalShares = math.NewInt(50)
	p.state.ReserveA, p.state.ReserveB = math.NewInt(55), math.NewInt(45)
	require.NoError(t, m.Check())
}

func TestVaultStakes(t *testing.T) {
	v := &fakeVault{total: math.NewInt(100), sum: math.NewInt(100)}
	stk := &fakeLedger{symbol: "STK", balances: map[types.Address]math.Int{"vault:STK-RWD": math.NewInt(100)}}
	require.NoError(t, VaultStakes(v, stk).Check())

	stk.balances["vault:STK-RWD"] = math.NewInt(99)
	require.ErrorIs(t, VaultStakes(v, stk).Check(), ErrCustodyShortfall)

	v.sum = math.NewInt(90)
	require.ErrorIs(t, VaultStakes(v, stk).Check(), ErrStakeMismatch)
}

func TestAudit(t *testing.T) {
	results := Audit([]chain.Invariant{
		chain.InvariantFunc{Label: "ok", Fn: func() error { return nil }},
		chain.InvariantFunc{Label: "bad", Fn: func() error { return ErrStakeMismatch }},
	})
	require.Len(t, results, 2)
	assert.Equal(t, Result{Name: "ok", OK: true}, results[0])
	assert.False(t, results[1].OK)
	assert.Equal(t, ErrStakeMismatch.Error(), results[1].Error)
}
