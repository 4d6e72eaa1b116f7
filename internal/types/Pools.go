/*

This is a custom type for pools which contains the observable state of a constant-product pool.

*/

package types

import (
	"cosmossdk.io/math"
)

type PoolState struct {
	Address       Address  `json:"address"`
	Owner         Address  `json:"owner"`
	TokenA        Address  `json:"token_a"`          // ledger address of asset A
	TokenB        Address  `json:"token_b"`          // ledger address of asset B
	ReserveA      math.Int `json:"reserve_a"`        // backs LP shares
	ReserveB      math.Int `json:"reserve_b"`        // backs LP shares
	TotalShares   math.Int `json:"total_shares"`     // sum of all LP balances
	FeeRateBps    uint32   `json:"fee_rate_bps"`     // retained per swap
	MaxFeeRateBps uint32   `json:"max_fee_rate_bps"` // policy ceiling for SetFeeRate
	FeesA         math.Int `json:"fees_a"`           // owner's uncollected fees, outside ReserveA
	FeesB         math.Int `json:"fees_b"`           // owner's uncollected fees, outside ReserveB
}

// Product returns ReserveA * ReserveB.
func (p PoolState) Product() math.Int {
	return p.ReserveA.Mul(p.ReserveB)
}
