/*

Package protocol wires one protocol instance together: a chain, the token ledgers, the
constant-product pool over the first two of them and the staking vault over the last
two. Everything is deployed by a single transaction submitted by the deployer.

*/

package protocol

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/elys-network/ammcore/internal/analyzer"
	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/config"
	"github.com/elys-network/ammcore/internal/ledger"
	"github.com/elys-network/ammcore/internal/logger"
	"github.com/elys-network/ammcore/internal/pool"
	"github.com/elys-network/ammcore/internal/types"
	"github.com/elys-network/ammcore/internal/utils"
	"github.com/elys-network/ammcore/internal/vault"
)

// DeployOperation is the operation name of the bootstrap transaction.
const DeployOperation = "deploy"

// Protocol holds a running instance with all its components
type Protocol struct {
	logger   zerolog.Logger
	chain    *chain.Chain
	clock    chain.Clock
	journal  *chain.MemoryJournal
	deployer types.Address
	params   types.ProtocolParameters

	ledgers map[string]*ledger.Ledger
	symbols []string // deployment order
	pool    *pool.Pool
	vault   *vault.Vault

	invariants []chain.Invariant
}

// Config holds the configuration for creating a new Protocol instance
type Config struct {
	Deployer types.Address
	Params   *types.ProtocolParameters
	// Assets lists the ledgers to deploy: pool asset A, pool asset B, staking asset, reward asset.
	Assets []types.AssetSpec
	Clock  chain.Clock  // nil means the system clock
	Sinks  []chain.Sink // receive every committed receipt, after the in-memory journal
}

// NewProtocol deploys a protocol instance.
func NewProtocol(ctx context.Context, cfg Config) (*Protocol, error) {
	if err := validateProtocolConfig(cfg); err != nil {
		return nil, fmt.Errorf("protocol configuration validation failed: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = chain.SystemClock{}
	}
	journal := chain.NewMemoryJournal(chain.DefaultJournalCapacity)
	c := chain.New(chain.Config{
		Clock: clock,
		Sinks: append([]chain.Sink{journal}, cfg.Sinks...),
	})

	p := &Protocol{
		logger:   logger.GetForComponent("protocol"),
		chain:    c,
		clock:    clock,
		journal:  journal,
		deployer: cfg.Deployer,
		params:   *cfg.Params,
		ledgers:  make(map[string]*ledger.Ledger, len(cfg.Assets)),
	}

	if _, err := c.Execute(ctx, cfg.Deployer, DeployOperation, func(tx *chain.Tx) error {
		return p.deploy(tx, cfg.Assets)
	}); err != nil {
		return nil, fmt.Errorf("failed to deploy protocol: %w", err)
	}

	p.registerInvariants()

	p.logger.Info().
		Str("deployer", p.deployer.String()).
		Strs("ledgers", p.symbols).
		Str("pool", p.pool.Address().String()).
		Str("vault", p.vault.Address().String()).
		Msg("Protocol instance deployed successfully")

	return p, nil
}

// validateProtocolConfig validates the protocol configuration
func validateProtocolConfig(cfg Config) error {
	if cfg.Deployer.IsZero() {
		return fmt.Errorf("deployer cannot be empty")
	}
	if cfg.Params == nil {
		return fmt.Errorf("protocol parameters cannot be nil")
	}
	if err := config.ValidateProtocolParameters(*cfg.Params); err != nil {
		return err
	}
	if len(cfg.Assets) != 4 {
		return fmt.Errorf("expected 4 assets (pool A, pool B, staking, reward), got %d", len(cfg.Assets))
	}
	seen := make(map[string]bool, len(cfg.Assets))
	for _, a := range cfg.Assets {
		symbol := strings.ToUpper(strings.TrimSpace(a.Symbol))
		if symbol == "" {
			return fmt.Errorf("asset symbol cannot be empty")
		}
		if seen[symbol] {
			return fmt.Errorf("duplicate asset symbol %s", symbol)
		}
		seen[symbol] = true
	}
	return nil
}

// deploy runs inside the bootstrap transaction.
func (p *Protocol) deploy(tx *chain.Tx, assets []types.AssetSpec) error {
	supply, err := utils.ParseAmount(p.params.InitialSupply)
	if err != nil {
		return errorsmod.Wrapf(types.ErrInvalidAmount, "initial supply: %v", err)
	}

	deployed := make([]*ledger.Ledger, 0, len(assets))
	for _, a := range assets {
		l, err := ledger.New(tx, ledger.Config{Symbol: a.Symbol, Name: a.Name, InitialSupply: supply})
		if err != nil {
			return fmt.Errorf("ledger %s: %w", a.Symbol, err)
		}
		p.ledgers[strings.ToUpper(l.Symbol())] = l
		p.symbols = append(p.symbols, l.Symbol())
		deployed = append(deployed, l)
	}

	p.pool, err = pool.New(tx, pool.Config{
		TokenA:        deployed[0],
		TokenB:        deployed[1],
		FeeRateBps:    p.params.PoolFeeRateBps,
		MaxFeeRateBps: p.params.PoolMaxFeeRateBps,
	})
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}

	rate, err := math.LegacyNewDecFromStr(p.params.RewardRate)
	if err != nil {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "reward rate: %v", err)
	}
	p.vault, err = vault.New(tx, vault.Config{
		StakingToken: deployed[2],
		RewardToken:  deployed[3],
		RewardRate:   rate,
		RatePeriod:   p.params.RewardRatePeriod,
		Clock:        p.chain,
	})
	if err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	return nil
}

// registerInvariants installs the post-transaction checks. They are added after the
// bootstrap so the deploy transaction itself is not checked against half-built state.
func (p *Protocol) registerInvariants() {
	for _, symbol := range p.symbols {
		p.invariants = append(p.invariants, analyzer.LedgerConservation(p.ledgers[strings.ToUpper(symbol)]))
	}
	monitor := analyzer.NewProductMonitor(p.pool)
	p.invariants = append(p.invariants,
		analyzer.PoolShares(p.pool),
		analyzer.PoolCustody(p.pool, p.pool.TokenA(), p.pool.TokenB()),
		monitor,
		analyzer.VaultStakes(p.vault, p.vault.StakingToken()),
	)
	for _, inv := range p.invariants {
		p.chain.AddInvariant(inv)
	}
	p.chain.AddSink(monitor)
}

// Chain returns the chain every operation must be executed on.
func (p *Protocol) Chain() *chain.Chain { return p.chain }

// Journal returns the in-memory receipt journal.
func (p *Protocol) Journal() *chain.MemoryJournal { return p.journal }

func (p *Protocol) Deployer() types.Address { return p.deployer }

func (p *Protocol) Params() types.ProtocolParameters { return p.params }

func (p *Protocol) Pool() *pool.Pool { return p.pool }

func (p *Protocol) Vault() *vault.Vault { return p.vault }

// Ledger looks a ledger up by symbol, case-insensitively.
func (p *Protocol) Ledger(symbol string) (*ledger.Ledger, bool) {
	l, ok := p.ledgers[strings.ToUpper(strings.TrimSpace(symbol))]
	return l, ok
}

// Ledgers returns every ledger in deployment order.
func (p *Protocol) Ledgers() []*ledger.Ledger {
	out := make([]*ledger.Ledger, 0, len(p.symbols))
	for _, s := range p.symbols {
		out = append(out, p.ledgers[strings.ToUpper(s)])
	}
	return out
}

// Execute applies fn as one transaction. It is a shorthand for Chain().Execute.
func (p *Protocol) Execute(ctx context.Context, sender types.Address, operation string, fn func(tx *chain.Tx) error) (*types.Receipt, error) {
	return p.chain.Execute(ctx, sender, operation, fn)
}

// Read runs fn while no transaction is applied.
func (p *Protocol) Read(fn func()) {
	p.chain.Read(fn)
}

// Audit runs every registered invariant against the current state.
func (p *Protocol) Audit() []analyzer.Result {
	var results []analyzer.Result
	p.chain.Read(func() {
		results = analyzer.Audit(p.invariants)
	})
	sort.SliceStable(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// ManualClock reports whether the chain clock only moves through AdvanceClock.
func (p *Protocol) ManualClock() bool {
	_, ok := p.clock.(*chain.ManualClock)
	return ok
}

// AdvanceClock moves a manual clock forward and returns the new chain time.
func (p *Protocol) AdvanceClock(d time.Duration) (time.Time, error) {
	mc, ok := p.clock.(*chain.ManualClock)
	if !ok {
		return time.Time{}, errorsmod.Wrap(types.ErrInvalidState, "clock is not manual")
	}
	if d <= 0 {
		return time.Time{}, errorsmod.Wrapf(types.ErrInvalidArgument, "duration %s must be positive", d)
	}
	mc.Advance(d)
	now := p.chain.Now()
	p.logger.Info().Dur("advance", d).Time("now", now).Msg("Manual clock advanced")
	return now, nil
}
