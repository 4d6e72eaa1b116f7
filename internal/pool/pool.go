/*

Package pool implements a two-asset constant-product market. Liquidity providers hold
fungible shares with a proportional claim on the reserves; swaps pay a fee that is kept
apart from the reserves until the owner collects it.

*/

package pool

import (
	"sort"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/logger"
	"github.com/elys-network/ammcore/internal/simulations"
	"github.com/elys-network/ammcore/internal/types"
)

// Asset is the part of a token ledger the pool needs.
type Asset interface {
	Address() types.Address
	Symbol() string
	BalanceOf(account types.Address) math.Int
	Transfer(tx *chain.Tx, to types.Address, amount math.Int) (bool, error)
	TransferFrom(tx *chain.Tx, from, to types.Address, amount math.Int) (bool, error)
}

// Config describes a pool at deployment.
type Config struct {
	TokenA        Asset
	TokenB        Asset
	FeeRateBps    uint32
	MaxFeeRateBps uint32
}

type Pool struct {
	address   types.Address
	owner     types.Address
	tokenA    Asset
	tokenB    Asset
	component string
	logger    zerolog.Logger

	reserveA    math.Int
	reserveB    math.Int
	totalShares math.Int
	shares      map[types.Address]math.Int

	feeRateBps    uint32
	maxFeeRateBps uint32
	feesA         math.Int
	feesB         math.Int
}

// New deploys an empty pool inside tx. The sender becomes the owner.
func New(tx *chain.Tx, cfg Config) (*Pool, error) {
	if cfg.TokenA == nil || cfg.TokenB == nil {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "both pool assets are required")
	}
	if cfg.TokenA.Address() == cfg.TokenB.Address() {
		return nil, errorsmod.Wrapf(types.ErrInvalidArgument, "pool assets must differ, got %s twice", cfg.TokenA.Address())
	}
	if cfg.MaxFeeRateBps > simulations.BpsDenominator {
		return nil, errorsmod.Wrapf(types.ErrInvalidArgument, "max fee rate %d bps exceeds %d", cfg.MaxFeeRateBps, simulations.BpsDenominator)
	}
	if cfg.FeeRateBps > cfg.MaxFeeRateBps {
		return nil, errorsmod.Wrapf(types.ErrInvalidArgument, "fee rate %d bps exceeds max %d", cfg.FeeRateBps, cfg.MaxFeeRateBps)
	}

	name := cfg.TokenA.Symbol() + "-" + cfg.TokenB.Symbol()
	p := &Pool{
		address:       chain.NewAddress("pool", name),
		owner:         tx.Sender(),
		tokenA:        cfg.TokenA,
		tokenB:        cfg.TokenB,
		component:     "pool/" + name,
		logger:        logger.GetForComponent("pool").With().Str("pool", name).Logger(),
		reserveA:      math.ZeroInt(),
		reserveB:      math.ZeroInt(),
		totalShares:   math.ZeroInt(),
		shares:        make(map[types.Address]math.Int),
		feeRateBps:    cfg.FeeRateBps,
		maxFeeRateBps: cfg.MaxFeeRateBps,
		feesA:         math.ZeroInt(),
		feesB:         math.ZeroInt(),
	}

	p.logger.Debug().
		Str("owner", p.owner.String()).
		Uint32("fee_rate_bps", p.feeRateBps).
		Uint32("max_fee_rate_bps", p.maxFeeRateBps).
		Msg("Pool deployed")
	return p, nil
}

func (p *Pool) Address() types.Address { return p.address }
func (p *Pool) Owner() types.Address { return p.owner }
func (p *Pool) TokenA() Asset { return p.tokenA }
func (p *Pool) TokenB() Asset { return p.tokenB }
func (p *Pool) FeeRate() uint32 { return p.feeRateBps }
func (p *Pool) MaxFeeRate() uint32 { return p.maxFeeRateBps }
func (p *Pool) TotalShares() math.Int { return p.totalShares }

// Reserves returns the assets backing the outstanding shares.
func (p *Pool) Reserves() (math.Int, math.Int) { return p.reserveA, p.reserveB }

// AccumulatedFees returns the fees the owner has not collected yet.
func (p *Pool) AccumulatedFees() (math.Int, math.Int) { return p.feesA, p.feesB }

// BalanceOf returns account's LP shares.
func (p *Pool) BalanceOf(account types.Address) math.Int {
	if s, ok := p.shares[account]; ok {
		return s
	}
	return math.ZeroInt()
}

// SumShares adds up every LP balance. It equals TotalShares whenever the pool is consistent.
func (p *Pool) SumShares() math.Int {
	sum := math.ZeroInt()
	for _, s := range p.shares {
		sum = sum.Add(s)
	}
	return sum
}

// State returns a copy of the pool's observable state.
func (p *Pool) State() types.PoolState {
	return types.PoolState{
		Address:       p.address,
		Owner:         p.owner,
		TokenA:        p.tokenA.Address(),
		TokenB:        p.tokenB.Address(),
		ReserveA:      p.reserveA,
		ReserveB:      p.reserveB,
		TotalShares:   p.totalShares,
		FeeRateBps:    p.feeRateBps,
		MaxFeeRateBps: p.maxFeeRateBps,
		FeesA:         p.feesA,
		FeesB:         p.feesB,
	}
}

// Position values account's shares at the current reserves.
func (p *Pool) Position(account types.Address) types.LPPosition {
	pos := types.LPPosition{
		Account: account,
		Shares:  p.BalanceOf(account),
		AmountA: math.ZeroInt(),
		AmountB: math.ZeroInt(),
	}
	if est, err := simulations.SimulateLeavePool(p.reserveA, p.reserveB, p.totalShares, pos.Shares); err == nil {
		pos.AmountA, pos.AmountB = est.AmountAOut, est.AmountBOut
	}
	return pos
}

// Positions lists every provider with a non-zero share balance, sorted by account.
func (p *Pool) Positions() []types.LPPosition {
	accounts := make([]types.Address, 0, len(p.shares))
	for a, s := range p.shares {
		if s.IsPositive() {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	out := make([]types.LPPosition, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, p.Position(a))
	}
	return out
}

// QuoteSwap prices a swap without executing it.
func (p *Pool) QuoteSwap(amountIn math.Int, tokenIn types.Address) (simulations.SwapEstimationResult, error) {
	rIn, rOut, err := p.orient(tokenIn)
	if err != nil {
		return simulations.SwapEstimationResult{}, err
	}
	return simulations.SimulateSwap(rIn, rOut, amountIn, p.feeRateBps)
}

// QuoteAddLiquidity computes the shares a deposit would mint.
func (p *Pool) QuoteAddLiquidity(amountA, amountB math.Int) (simulations.JoinPoolEstimationResult, error) {
	return simulations.SimulateJoinPool(p.reserveA, p.reserveB, p.totalShares, amountA, amountB)
}

// QuoteRemoveLiquidity computes the payout for redeeming shares.
func (p *Pool) QuoteRemoveLiquidity(shares math.Int) (simulations.ExitPoolEstimationResult, error) {
	return simulations.SimulateLeavePool(p.reserveA, p.reserveB, p.totalShares, shares)
}

// SetFeeRate changes the swap fee. Owner only; the rate may not exceed MaxFeeRate.
func (p *Pool) SetFeeRate(tx *chain.Tx, bps uint32) error {
	if err := p.requireOwner(tx); err != nil {
		return err
	}
	if bps > p.maxFeeRateBps {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "fee rate %d bps exceeds max %d", bps, p.maxFeeRateBps)
	}
	prev := p.feeRateBps
	p.feeRateBps = bps
	tx.OnRevert(func() { p.feeRateBps = prev })

	tx.Emit(types.NewEvent(p.component, "fee_rate_updated",
		types.Attr("old_fee_rate_bps", prev),
		types.Attr("new_fee_rate_bps", bps),
	))
	p.logger.Debug().Uint32("old_fee_rate_bps", prev).Uint32("new_fee_rate_bps", bps).Msg("Fee rate updated")
	return nil
}

// CollectFees pays the accumulated fees to the owner.
func (p *Pool) CollectFees(tx *chain.Tx) (math.Int, math.Int, error) {
	if err := p.requireOwner(tx); err != nil {
		return math.Int{}, math.Int{}, err
	}
	feesA, feesB := p.feesA, p.feesB
	p.setFees(tx, math.ZeroInt(), math.ZeroInt())
	tx.Emit(types.NewEvent(p.component, "fees_collected",
		types.Attr("owner", p.owner),
		types.Attr("amount_a", feesA),
		types.Attr("amount_b", feesB),
	))

	if err := p.pay(tx, p.tokenA, p.owner, feesA); err != nil {
		return math.Int{}, math.Int{}, err
	}
	if err := p.pay(tx, p.tokenB, p.owner, feesB); err != nil {
		return math.Int{}, math.Int{}, err
	}

	p.logger.Debug().Str("fees_a", feesA.String()).Str("fees_b", feesB.String()).Msg("Fees collected")
	return feesA, feesB, nil
}

func (p *Pool) requireOwner(tx *chain.Tx) error {
	if tx.Sender() != p.owner {
		return errorsmod.Wrapf(types.ErrAccessDenied, "%s is not the pool owner", tx.Sender())
	}
	return nil
}

// orient returns (reserveIn, reserveOut) for a swap of tokenIn.
func (p *Pool) orient(tokenIn types.Address) (math.Int, math.Int, error) {
	switch tokenIn {
	case p.tokenA.Address():
		return p.reserveA, p.reserveB, nil
	case p.tokenB.Address():
		return p.reserveB, p.reserveA, nil
	default:
		return math.Int{}, math.Int{}, errorsmod.Wrapf(types.ErrInvalidArgument, "%s is not traded by this pool", tokenIn)
	}
}

// pull moves amount of asset from account into the pool, as the pool.
func (p *Pool) pull(tx *chain.Tx, asset Asset, from types.Address, amount math.Int) error {
	return tx.Call(p.address, func() error {
		_, err := asset.TransferFrom(tx, from, p.address, amount)
		return err
	})
}

// pay moves amount of asset from the pool to account. Zero amounts are skipped.
func (p *Pool) pay(tx *chain.Tx, asset Asset, to types.Address, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	return tx.Call(p.address, func() error {
		_, err := asset.Transfer(tx, to, amount)
		return err
	})
}

// --- journaled setters ---

func (p *Pool) setReserves(tx *chain.Tx, a, b math.Int) {
	prevA, prevB := p.reserveA, p.reserveB
	p.reserveA, p.reserveB = a, b
	tx.OnRevert(func() { p.reserveA, p.reserveB = prevA, prevB })
}

func (p *Pool) setFees(tx *chain.Tx, a, b math.Int) {
	prevA, prevB := p.feesA, p.feesB
	p.feesA, p.feesB = a, b
	tx.OnRevert(func() { p.feesA, p.feesB = prevA, prevB })
}

func (p *Pool) setShares(tx *chain.Tx, account types.Address, value, total math.Int) {
	prev, had := p.shares[account]
	prevTotal := p.totalShares
	p.shares[account] = value
	p.totalShares = total
	tx.OnRevert(func() {
		p.totalShares = prevTotal
		if had {
			p.shares[account] = prev
		} else {
			delete(p.shares, account)
		}
	})
}
