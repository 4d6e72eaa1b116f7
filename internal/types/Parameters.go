/*

This file contains the tunable protocol parameters used to deploy the ledgers, the pool and the vault.

*/

package types

import (
	"time"
)

// ProtocolParameters holds everything needed to bootstrap a protocol instance.
// Different sets can be stored and activated through the state package.
type ProtocolParameters struct {
	// --- Ledger Parameters ---
	InitialSupply string `json:"initial_supply"` // Whole tokens credited to the deployer of each ledger (e.g., "1000000").

	// --- Pool Parameters ---
	PoolFeeRateBps    uint32 `json:"pool_fee_rate_bps"`     // Fee retained per swap in basis points (e.g., 50 for 0.5%).
	PoolMaxFeeRateBps uint32 `json:"pool_max_fee_rate_bps"` // Ceiling enforced by SetFeeRate, at most 10000.

	// --- Staking Parameters ---
	RewardRate       string        `json:"reward_rate"`        // Reward units per staked unit per RewardRatePeriod, 18-decimal string (e.g., "0.01").
	RewardRatePeriod time.Duration `json:"reward_rate_period"` // Accrual period the rate refers to (e.g., one hour).
}
