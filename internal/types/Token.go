/*

This is a custom type for tokens which describes a deployed ledger for queries and the API.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Decimals is the number of fractional digits every ledger amount carries.
const Decimals = 18

type TokenInfo struct {
	Symbol      string      `json:"symbol"`       // e.g., "TKA"
	Name        string      `json:"name"`         // e.g., "TokenA"
	Address     Address     `json:"address"`      // ledger address
	Decimals    int         `json:"decimals"`     // always 18
	TotalSupply sdkmath.Int `json:"total_supply"` // base units
	Paused      bool        `json:"paused"`
	SnapshotID  uint64      `json:"snapshot_id"` // latest issued snapshot id, 0 if none
}

// AssetSpec names a ledger deployed at boot.
type AssetSpec struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
