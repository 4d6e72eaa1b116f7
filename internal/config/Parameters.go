/*

This file contains the default parameters for a protocol instance.

They are used when no active parameter set is found in the database during startup,
and whenever the audit database is disabled.

*/

package config

import (
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/types"
)

var ErrInvalidProtocolParameters = errors.New("invalid protocol parameters")

// DefaultProtocolParameters provides a baseline set of parameters.
var DefaultProtocolParameters = types.ProtocolParameters{
	// --- Ledger Parameters ---
	InitialSupply: "1000000", // One million whole tokens per ledger, all credited to the deployer.
	// Rationale: large enough to seed the pool, fund the vault's rewards and hand out test balances.

	// --- Pool Parameters ---
	PoolFeeRateBps: 50, // 0.5% of every swap input is retained for the owner.
	// Rationale: low enough that small swaps still move, high enough that fees show up in demos.

	PoolMaxFeeRateBps: 1000, // SetFeeRate can raise the fee to at most 10%.
	// Rationale: protects traders from a misconfigured or malicious owner.

	// --- Staking Parameters ---
	RewardRate: "0.01", // Reward units per staked unit per RewardRatePeriod.
	// Rationale: 100 staked for one period earns exactly 1, which keeps the numbers readable.

	RewardRatePeriod: time.Hour,
}

// ValidateProtocolParameters checks a parameter set before anything is deployed from it.
func ValidateProtocolParameters(p types.ProtocolParameters) error {
	supply, err := math.LegacyNewDecFromStr(p.InitialSupply)
	if err != nil {
		return errors.Join(ErrInvalidProtocolParameters, fmt.Errorf("initial supply %q: %w", p.InitialSupply, err))
	}
	if supply.IsNegative() {
		return errors.Join(ErrInvalidProtocolParameters, fmt.Errorf("initial supply %s is negative", supply))
	}
	if p.PoolMaxFeeRateBps > 10_000 {
		return errors.Join(ErrInvalidProtocolParameters, fmt.Errorf("max fee rate %d bps exceeds 10000", p.PoolMaxFeeRateBps))
	}
	if p.PoolFeeRateBps > p.PoolMaxFeeRateBps {
		return errors.Join(ErrInvalidProtocolParameters, fmt.Errorf("fee rate %d bps exceeds max %d", p.PoolFeeRateBps, p.PoolMaxFeeRateBps))
	}
	rate, err := math.LegacyNewDecFromStr(p.RewardRate)
	if err != nil {
		return errors.Join(ErrInvalidProtocolParameters, fmt.Errorf("reward rate %q: %w", p.RewardRate, err))
	}
	if rate.IsNegative() {
		return errors.Join(ErrInvalidProtocolParameters, fmt.Errorf("reward rate %s is negative", rate))
	}
	if p.RewardRatePeriod <= 0 {
		return errors.Join(ErrInvalidProtocolParameters, fmt.Errorf("reward rate period %s must be positive", p.RewardRatePeriod))
	}
	return nil
}
