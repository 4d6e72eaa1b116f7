package protocol

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/config"
	"github.com/elys-network/ammcore/internal/types"
	"github.com/elys-network/ammcore/internal/utils"
)

const (
	deployer types.Address = "deployer"
	alice    types.Address = "alice"
)

func tokens(n int64) math.Int { return utils.Tokens(n) }

func newTestProtocol(t *testing.T) (*Protocol, *chain.ManualClock) {
	t.Helper()
	clock := chain.NewManualClock()
	params := config.DefaultProtocolParameters
	p, err := NewProtocol(context.Background(), Config{
		Deployer: deployer,
		Params:   &params,
		Assets:   config.DefaultAssets,
		Clock:    clock,
	})
	require.NoError(t, err)
	return p, clock
}

func exec(t *testing.T, p *Protocol, sender types.Address, fn func(tx *chain.Tx) error) {
	t.Helper()
	_, err := p.Execute(context.Background(), sender, "test", fn)
	require.NoError(t, err)
}

func TestNewProtocolDeploysEverything(t *testing.T) {
	p, _ := newTestProtocol(t)

	require.Len(t, p.Ledgers(), 4)
	for _, spec := range config.DefaultAssets {
		l, ok := p.Ledger(spec.Symbol)
		require.True(t, ok, spec.Symbol)
		assert.Equal(t, spec.Name, l.Name())
		assert.Equal(t, tokens(1_000_000).String(), l.BalanceOf(deployer).String())
		assert.True(t, l.HasRole(types.RoleMinter, deployer))
	}

	_, ok := p.Ledger("tka")
	assert.True(t, ok, "lookup is case-insensitive")
	_, ok = p.Ledger("XYZ")
	assert.False(t, ok)

	assert.Equal(t, deployer, p.Pool().Owner())
	assert.Equal(t, "TKA", p.Pool().TokenA().Symbol())
	assert.Equal(t, "TKB", p.Pool().TokenB().Symbol())
	assert.Equal(t, uint32(50), p.Pool().FeeRate())
	assert.Equal(t, uint32(1000), p.Pool().MaxFeeRate())

	assert.Equal(t, "STK", p.Vault().StakingToken().Symbol())
	assert.Equal(t, "RWD", p.Vault().RewardToken().Symbol())
	assert.Equal(t, time.Hour, p.Vault().RatePeriod())

	assert.Equal(t, uint64(1), p.Chain().Height())
	recent := p.Journal().Recent(10)
	require.Len(t, recent, 1)
	assert.Equal(t, DeployOperation, recent[0].Operation)
}

func TestNewProtocolRejectsBadConfig(t *testing.T) {
	params := config.DefaultProtocolParameters
	ctx := context.Background()

	_, err := NewProtocol(ctx, Config{Params: &params, Assets: config.DefaultAssets})
	require.Error(t, err)

	_, err = NewProtocol(ctx, Config{Deployer: deployer, Assets: config.DefaultAssets})
	require.Error(t, err)

	_, err = NewProtocol(ctx, Config{Deployer: deployer, Params: &params, Assets: config.DefaultAssets[:3]})
	require.Error(t, err)

	dup := []types.AssetSpec{config.PoolAssetA, config.PoolAssetA, config.StakingAsset, config.RewardAsset}
	_, err = NewProtocol(ctx, Config{Deployer: deployer, Params: &params, Assets: dup})
	require.Error(t, err)

	bad := params
	bad.PoolFeeRateBps = bad.PoolMaxFeeRateBps + 1
	_, err = NewProtocol(ctx, Config{Deployer: deployer, Params: &bad, Assets: config.DefaultAssets})
	require.ErrorIs(t, err, config.ErrInvalidProtocolParameters)
}

func TestProtocolEndToEnd(t *testing.T) {
	p, _ := newTestProtocol(t)
	tka, _ := p.Ledger("TKA")
	tkb, _ := p.Ledger("TKB")
	stk, _ := p.Ledger("STK")
	rwd, _ := p.Ledger("RWD")
	poolAddr := p.Pool().Address()
	vaultAddr := p.Vault().Address()

	// Seed the pool.
	exec(t, p, deployer, func(tx *chain.Tx) error {
		if err := tka.Approve(tx, poolAddr, tokens(1000)); err != nil {
			return err
		}
		if err := tkb.Approve(tx, poolAddr, tokens(1000)); err != nil {
			return err
		}
		_, err := p.Pool().AddLiquidity(tx, tokens(1000), tokens(1000))
		return err
	})
	assert.Equal(t, tokens(1000).String(), p.Pool().TotalShares().String())

	// Alice trades.
	exec(t, p, deployer, func(tx *chain.Tx) error {
		_, err := tka.Transfer(tx, alice, tokens(100))
		return err
	})
	var out math.Int
	exec(t, p, alice, func(tx *chain.Tx) error {
		if err := tka.Approve(tx, poolAddr, tokens(100)); err != nil {
			return err
		}
		var err error
		out, err = p.Pool().Swap(tx, tokens(100), tka.Address())
		return err
	})
	assert.True(t, out.IsPositive())
	assert.Equal(t, out.String(), tkb.BalanceOf(alice).String())

	// Fund the vault and stake.
	exec(t, p, deployer, func(tx *chain.Tx) error {
		if _, err := rwd.Transfer(tx, vaultAddr, tokens(100)); err != nil {
			return err
		}
		_, err := stk.Transfer(tx, alice, tokens(100))
		return err
	})
	exec(t, p, alice, func(tx *chain.Tx) error {
		if err := stk.Approve(tx, vaultAddr, tokens(100)); err != nil {
			return err
		}
		return p.Vault().Stake(tx, tokens(100))
	})

	_, err := p.AdvanceClock(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, tokens(1).String(), p.Vault().PendingReward(alice).String())

	exec(t, p, alice, func(tx *chain.Tx) error {
		_, _, err := p.Vault().Withdraw(tx)
		return err
	})
	assert.Equal(t, tokens(100).String(), stk.BalanceOf(alice).String())
	assert.Equal(t, tokens(1).String(), rwd.BalanceOf(alice).String())

	for _, r := range p.Audit() {
		assert.True(t, r.OK, "%s: %s", r.Name, r.Error)
	}
}

func TestAuditCoversEveryComponent(t *testing.T) {
	p, _ := newTestProtocol(t)
	results := p.Audit()
	// four ledgers, pool shares, pool custody, pool product, vault stakes
	require.Len(t, results, 8)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Name, results[i].Name)
	}
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	p, _ := newTestProtocol(t)
	tka, _ := p.Ledger("TKA")
	height := p.Chain().Height()

	_, err := p.Execute(context.Background(), alice, "swap", func(tx *chain.Tx) error {
		_, err := p.Pool().Swap(tx, tokens(1), tka.Address())
		return err
	})
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
	assert.Equal(t, height, p.Chain().Height())
	assert.Equal(t, 1, p.Journal().Len())
}

func TestAdvanceClock(t *testing.T) {
	p, clock := newTestProtocol(t)
	assert.True(t, p.ManualClock())

	before := clock.Now()
	now, err := p.AdvanceClock(90 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, before.Add(90*time.Minute), now)

	_, err = p.AdvanceClock(0)
	require.ErrorIs(t, err, types.ErrInvalidArgument)

	params := config.DefaultProtocolParameters
	live, err := NewProtocol(context.Background(), Config{Deployer: deployer, Params: &params, Assets: config.DefaultAssets})
	require.NoError(t, err)
	assert.False(t, live.ManualClock())
	_, err = live.AdvanceClock(time.Minute)
	require.ErrorIs(t, err, types.ErrInvalidState)
}
