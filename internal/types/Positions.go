/*

This file contains the types for positions held in the pool and the staking vault.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// StakeInfo is one account's position in the staking vault.
type StakeInfo struct {
	Amount     sdkmath.Int `json:"amount"`      // staked principal
	RewardDebt sdkmath.Int `json:"reward_debt"` // reward owed to the account
	LastUpdate time.Time   `json:"last_update"` // last settlement checkpoint
}

// IsEmpty reports whether the account has no open position.
func (s StakeInfo) IsEmpty() bool {
	return s.Amount.IsNil() || s.Amount.IsZero()
}

// LPPosition is an account's share of the pool.
type LPPosition struct {
	Account Address     `json:"account"`
	Shares  sdkmath.Int `json:"shares"`
	AmountA sdkmath.Int `json:"amount_a"` // redeemable now
	AmountB sdkmath.Int `json:"amount_b"` // redeemable now
}
