package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/config"
	"github.com/elys-network/ammcore/internal/ledger"
	"github.com/elys-network/ammcore/internal/protocol"
	"github.com/elys-network/ammcore/internal/types"
	"github.com/elys-network/ammcore/internal/utils"
)

var (
	demoDeployer string
	demoSupply   string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the walkthrough scenarios against an in-memory protocol",
	Long: `Deploys a fresh protocol on a manual clock and runs the walkthrough: role-gated
minting, pausing, burning, a liquidity round trip and a one hour stake. Exits
non-zero if any step does not behave as expected or an audit check fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging("info", ""); err != nil {
			return err
		}
		results, err := runDemo(cmd.Context(), types.Address(demoDeployer), demoSupply)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			ev := log.Info()
			if r.Err != nil {
				ev = log.Error().Err(r.Err)
				failed++
			}
			ev.Int("step", r.Step).Msg(r.Name)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
		}
		log.Info().Int("scenarios", len(results)).Msg("All scenarios passed")
		return nil
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoDeployer, "deployer", "deployer", "account that deploys the protocol")
	demoCmd.Flags().StringVar(&demoSupply, "supply", "1000", "initial supply of every ledger, in whole tokens")
	rootCmd.AddCommand(demoCmd)
}

type scenarioResult struct {
	Step int
	Name string
	Err  error
}

type scenario struct {
	name string
	run  func(ctx context.Context) error
}

type demo struct {
	p        *protocol.Protocol
	deployer types.Address
	minter   types.Address
	alice    types.Address
	bob      types.Address
}

// runDemo deploys a protocol on a manual clock and runs every scenario in order.
// Setup errors are returned; scenario failures are reported per result.
func runDemo(ctx context.Context, deployer types.Address, supply string) ([]scenarioResult, error) {
	params := config.DefaultProtocolParameters
	params.InitialSupply = supply
	p, err := protocol.NewProtocol(ctx, protocol.Config{
		Deployer: deployer,
		Params:   &params,
		Assets:   config.DefaultAssets,
		Clock:    chain.NewManualClock(),
	})
	if err != nil {
		return nil, err
	}

	d := &demo{p: p, deployer: deployer, minter: "minter", alice: "alice", bob: "bob"}
	scenarios := []scenario{
		{"granted minter mints 100 to alice", d.mintWithRole},
		{"mint without MINTER_ROLE reverts", d.mintWithoutRole},
		{"paused ledger blocks transfers until unpaused", d.pauseCycle},
		{"burning 50 lowers total supply by 50", d.burn},
		{"liquidity round trip returns the deposit", d.liquidityRoundTrip},
		{"one hour stake of 100 earns 1 reward token", d.stakeOneHour},
		{"audit checks hold", d.audit},
	}
	results := make([]scenarioResult, 0, len(scenarios))
	for i, s := range scenarios {
		results = append(results, scenarioResult{Step: i + 1, Name: s.name, Err: s.run(ctx)})
	}
	return results, nil
}

func (d *demo) ledger(symbol string) *ledger.Ledger {
	l, _ := d.p.Ledger(symbol)
	return l
}

func (d *demo) exec(ctx context.Context, sender types.Address, op string, fn func(tx *chain.Tx) error) error {
	_, err := d.p.Execute(ctx, sender, op, fn)
	return err
}

func expectBalance(what string, got, want math.Int) error {
	if !got.Equal(want) {
		return fmt.Errorf("%s: got %s, want %s", what, utils.FormatAmount(got), utils.FormatAmount(want))
	}
	return nil
}

func (d *demo) mintWithRole(ctx context.Context) error {
	tka := d.ledger(config.PoolAssetA.Symbol)
	if err := d.exec(ctx, d.deployer, "grant_role", func(tx *chain.Tx) error {
		return tka.GrantRole(tx, types.RoleMinter, d.minter)
	}); err != nil {
		return err
	}
	if err := d.exec(ctx, d.minter, "mint", func(tx *chain.Tx) error {
		return tka.Mint(tx, d.alice, utils.Tokens(100))
	}); err != nil {
		return err
	}
	return expectBalance("alice TKA", tka.BalanceOf(d.alice), utils.Tokens(100))
}

func (d *demo) mintWithoutRole(ctx context.Context) error {
	tka := d.ledger(config.PoolAssetA.Symbol)
	before := tka.TotalSupply()
	err := d.exec(ctx, d.bob, "mint", func(tx *chain.Tx) error {
		return tka.Mint(tx, d.bob, utils.Tokens(100))
	})
	if !errors.Is(err, types.ErrAccessDenied) {
		return fmt.Errorf("expected access denied, got %v", err)
	}
	return expectBalance("TKA supply", tka.TotalSupply(), before)
}

func (d *demo) pauseCycle(ctx context.Context) error {
	tka := d.ledger(config.PoolAssetA.Symbol)
	if err := d.exec(ctx, d.deployer, "pause", tka.Pause); err != nil {
		return err
	}
	err := d.exec(ctx, d.alice, "transfer", func(tx *chain.Tx) error {
		_, err := tka.Transfer(tx, d.bob, utils.Tokens(50))
		return err
	})
	if !errors.Is(err, types.ErrInvalidState) {
		return fmt.Errorf("expected transfer to revert while paused, got %v", err)
	}
	if err := d.exec(ctx, d.deployer, "unpause", tka.Unpause); err != nil {
		return err
	}
	if err := d.exec(ctx, d.alice, "transfer", func(tx *chain.Tx) error {
		_, err := tka.Transfer(tx, d.bob, utils.Tokens(50))
		return err
	}); err != nil {
		return err
	}
	return expectBalance("bob TKA", tka.BalanceOf(d.bob), utils.Tokens(50))
}

func (d *demo) burn(ctx context.Context) error {
	tkb := d.ledger(config.PoolAssetB.Symbol)
	before := tkb.TotalSupply()
	if err := d.exec(ctx, d.deployer, "burn", func(tx *chain.Tx) error {
		return tkb.Burn(tx, utils.Tokens(50))
	}); err != nil {
		return err
	}
	return expectBalance("TKB supply", tkb.TotalSupply(), before.Sub(utils.Tokens(50)))
}

func (d *demo) liquidityRoundTrip(ctx context.Context) error {
	pool := d.p.Pool()
	tka, tkb := d.ledger(config.PoolAssetA.Symbol), d.ledger(config.PoolAssetB.Symbol)
	startA, startB := tka.BalanceOf(d.deployer), tkb.BalanceOf(d.deployer)

	var a, b math.Int
	err := d.exec(ctx, d.deployer, "liquidity_round_trip", func(tx *chain.Tx) error {
		if err := tka.Approve(tx, pool.Address(), utils.Tokens(100)); err != nil {
			return err
		}
		if err := tkb.Approve(tx, pool.Address(), utils.Tokens(100)); err != nil {
			return err
		}
		shares, err := pool.AddLiquidity(tx, utils.Tokens(100), utils.Tokens(100))
		if err != nil {
			return err
		}
		a, b, err = pool.RemoveLiquidity(tx, shares)
		return err
	})
	if err != nil {
		return err
	}
	if err := expectBalance("returned TKA", a, utils.Tokens(100)); err != nil {
		return err
	}
	if err := expectBalance("returned TKB", b, utils.Tokens(100)); err != nil {
		return err
	}
	if err := expectBalance("deployer TKA", tka.BalanceOf(d.deployer), startA); err != nil {
		return err
	}
	return expectBalance("deployer TKB", tkb.BalanceOf(d.deployer), startB)
}

func (d *demo) stakeOneHour(ctx context.Context) error {
	v := d.p.Vault()
	stk, rwd := d.ledger(config.StakingAsset.Symbol), d.ledger(config.RewardAsset.Symbol)

	if err := d.exec(ctx, d.deployer, "fund_vault", func(tx *chain.Tx) error {
		if _, err := rwd.Transfer(tx, v.Address(), utils.Tokens(10)); err != nil {
			return err
		}
		_, err := stk.Transfer(tx, d.alice, utils.Tokens(100))
		return err
	}); err != nil {
		return err
	}
	if err := d.exec(ctx, d.alice, "stake", func(tx *chain.Tx) error {
		if err := stk.Approve(tx, v.Address(), utils.Tokens(100)); err != nil {
			return err
		}
		return v.Stake(tx, utils.Tokens(100))
	}); err != nil {
		return err
	}
	if _, err := d.p.AdvanceClock(time.Hour); err != nil {
		return err
	}

	var reward math.Int
	if err := d.exec(ctx, d.alice, "withdraw", func(tx *chain.Tx) error {
		var err error
		_, reward, err = v.Withdraw(tx)
		return err
	}); err != nil {
		return err
	}

	// 1 token with a 0.01 token tolerance
	diff := reward.Sub(utils.Tokens(1)).Abs()
	if diff.GT(utils.Tokens(1).QuoRaw(100)) {
		return fmt.Errorf("reward %s is not within 0.01 of 1", utils.FormatAmount(reward))
	}
	if f, err := utils.SDKIntToFloat64(reward); err == nil {
		log.Debug().Float64("reward", f).Msg("stake settled")
	}
	return expectBalance("alice STK", stk.BalanceOf(d.alice), utils.Tokens(100))
}

func (d *demo) audit(context.Context) error {
	var errs []error
	for _, r := range d.p.Audit() {
		if !r.OK {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Error))
		}
	}
	return errors.Join(errs...)
}
