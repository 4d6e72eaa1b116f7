package analyzer

import (
	"context"
	"sync"

	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

// PoolView is what the pool checks read.
type PoolView interface {
	State() types.PoolState
	SumShares() math.Int
}

// PoolShares checks that LP balances sum to the pool's total shares.
func PoolShares(p PoolView) chain.Invariant {
	return chain.InvariantFunc{
		Label: "pool-shares/" + string(p.State().Address),
		Fn: func() error {
			total, sum := p.State().TotalShares, p.SumShares()
			if !total.Equal(sum) {
				return fail(ErrShareMismatch, "total %s, balances %s", total, sum)
			}
			return nil
		},
	}
}

// PoolCustody checks that the pool holds at least its reserves plus uncollected fees
// of each asset. Direct transfers to the pool can only raise custody.
func PoolCustody(p PoolView, tokenA, tokenB BalanceView) chain.Invariant {
	return chain.InvariantFunc{
		Label: "pool-custody/" + string(p.State().Address),
		Fn: func() error {
			s := p.State()
			if held, owed := tokenA.BalanceOf(s.Address), s.ReserveA.Add(s.FeesA); held.LT(owed) {
				return fail(ErrCustodyShortfall, "%s: holds %s, owes %s", tokenA.Symbol(), held, owed)
			}
			if held, owed := tokenB.BalanceOf(s.Address), s.ReserveB.Add(s.FeesB); held.LT(owed) {
				return fail(ErrCustodyShortfall, "%s: holds %s, owes %s", tokenB.Symbol(), held, owed)
			}
			return nil
		},
	}
}

// ProductMonitor checks that reserveA*reserveB never drops while total shares stay
// the same, which is the case across swaps and fee collection. It is both an
// invariant and a sink: the baseline only moves forward on committed transactions.
type ProductMonitor struct {
	pool PoolView

	mu      sync.Mutex
	shares  math.Int
	product math.Int
}

func NewProductMonitor(p PoolView) *ProductMonitor {
	m := &ProductMonitor{pool: p}
	m.reset()
	return m
}

func (m *ProductMonitor) Name() string {
	return "pool-product/" + string(m.pool.State().Address)
}

func (m *ProductMonitor) Check() error {
	s := m.pool.State()
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.TotalShares.Equal(m.shares) && s.Product().LT(m.product) {
		return fail(ErrProductDecreased, "product %s below %s", s.Product(), m.product)
	}
	return nil
}

// Record moves the baseline to the committed state.
func (m *ProductMonitor) Record(_ context.Context, _ types.Receipt) error {
	m.reset()
	return nil
}

func (m *ProductMonitor) reset() {
	s := m.pool.State()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares = s.TotalShares
	m.product = s.Product()
}
