package vault

import (
	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

// TokenLedger defines the ledger operations the vault relies on.
// Both the staking asset and the reward asset are accessed through it, so the vault
// works with any ledger implementation (the real one, or a fake in tests).
type TokenLedger interface {
	// Address returns the ledger's own address.
	Address() types.Address

	// Symbol returns the ledger's ticker, used to name the vault.
	Symbol() string

	// BalanceOf returns the current balance of account.
	BalanceOf(account types.Address) math.Int

	// Transfer moves amount from the current sender to to.
	Transfer(tx *chain.Tx, to types.Address, amount math.Int) (bool, error)

	// TransferFrom moves amount from from to to, spending the current sender's allowance.
	// The vault pulls stakes with it, so stakers approve the vault first.
	TransferFrom(tx *chain.Tx, from, to types.Address, amount math.Int) (bool, error)
}
