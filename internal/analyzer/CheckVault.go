package analyzer

import (
	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

// VaultView is what the staking checks read.
type VaultView interface {
	Address() types.Address
	TotalStaked() math.Int
	SumStakes() math.Int
}

// VaultStakes checks that positions sum to the vault's total and that the vault holds
// at least that much of the staking asset.
func VaultStakes(v VaultView, stakingToken BalanceView) chain.Invariant {
	return chain.InvariantFunc{
		Label: "vault-stakes/" + string(v.Address()),
		Fn: func() error {
			total, sum := v.TotalStaked(), v.SumStakes()
			if !total.Equal(sum) {
				return fail(ErrStakeMismatch, "total %s, positions %s", total, sum)
			}
			if held := stakingToken.BalanceOf(v.Address()); held.LT(total) {
				return fail(ErrCustodyShortfall, "%s: holds %s, staked %s", stakingToken.Symbol(), held, total)
			}
			return nil
		},
	}
}

// Result is the outcome of one invariant in an audit.
type Result struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Audit runs every invariant once and reports each outcome. Callers must hold the
// chain's read lock.
func Audit(invariants []chain.Invariant) []Result {
	results := make([]Result, 0, len(invariants))
	for _, inv := range invariants {
		r := Result{Name: inv.Name(), OK: true}
		if err := inv.Check(); err != nil {
			r.OK = false
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}
