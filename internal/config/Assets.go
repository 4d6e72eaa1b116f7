/*
This file contains the ledgers deployed at boot.

The first two are the pool's assets, the last two are the vault's staking and reward
assets. Symbols double as the path segment in the API (/api/tokens/{symbol}), so keep
them short and upper case.

*/

package config

import (
	"github.com/elys-network/ammcore/internal/types"
)

var (
	PoolAssetA   = types.AssetSpec{Symbol: "TKA", Name: "TokenA"}
	PoolAssetB   = types.AssetSpec{Symbol: "TKB", Name: "TokenB"}
	StakingAsset = types.AssetSpec{Symbol: "STK", Name: "StakingToken"}
	RewardAsset  = types.AssetSpec{Symbol: "RWD", Name: "RewardToken"}

	DefaultAssets = []types.AssetSpec{PoolAssetA, PoolAssetB, StakingAsset, RewardAsset}
)
