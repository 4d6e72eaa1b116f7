/*

Error kinds shared by the ledger, pool and vault. Every rejection wraps one of these
so callers can tell which precondition failed with errors.Is.

*/

package types

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error namespace reported to API clients.
const Codespace = "ammcore"

var (
	ErrAccessDenied          = errorsmod.Register(Codespace, 2, "access denied")
	ErrInvalidState          = errorsmod.Register(Codespace, 3, "invalid state")
	ErrInsufficientBalance   = errorsmod.Register(Codespace, 4, "insufficient balance")
	ErrInsufficientLiquidity = errorsmod.Register(Codespace, 5, "insufficient liquidity")
	ErrInvalidAmount         = errorsmod.Register(Codespace, 6, "invalid amount")
	ErrInvalidArgument       = errorsmod.Register(Codespace, 7, "invalid argument")
	ErrNothingStaked         = errorsmod.Register(Codespace, 8, "nothing staked")
	ErrInsufficientAllowance = errorsmod.Register(Codespace, 9, "insufficient allowance")
	ErrInvariantViolated     = errorsmod.Register(Codespace, 10, "invariant violated")
)
