package vault

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

// Stake locks amount of the staking asset from the sender. Rewards accrued on an
// existing position are settled first, so the larger amount only earns from now on.
func (v *Vault) Stake(tx *chain.Tx, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "stake amount must be positive")
	}
	staker := tx.Sender()
	s, err := v.settle(tx, staker, v.stakes[staker])
	if err != nil {
		return err
	}

	stakedBefore, totalBefore := s.Amount, v.totalStaked
	s.Amount = s.Amount.Add(amount)
	v.setStake(tx, staker, s, totalBefore.Add(amount))
	tx.Emit(types.NewEvent(v.component, "staked",
		types.Attr("account", staker),
		types.Attr("amount", amount),
		types.Attr("staked_before", stakedBefore),
		types.Attr("staked_after", s.Amount),
		types.Attr("total_staked_before", totalBefore),
		types.Attr("total_staked_after", v.totalStaked),
	))

	if err := tx.Call(v.address, func() error {
		_, err := v.stakingToken.TransferFrom(tx, staker, v.address, amount)
		return err
	}); err != nil {
		return err
	}

	v.logger.Debug().Str("account", staker.String()).Str("amount", amount.String()).Msg("Staked")
	return nil
}

// Withdraw closes the sender's position, paying back the principal in the staking
// asset and every settled reward in the reward asset. The position is cleared before
// either payout. A reward larger than the vault's reward balance fails the whole
// withdrawal with ErrInsufficientBalance.
func (v *Vault) Withdraw(tx *chain.Tx) (math.Int, math.Int, error) {
	staker := tx.Sender()
	current, ok := v.stakes[staker]
	if !ok || current.IsEmpty() {
		return math.Int{}, math.Int{}, errorsmod.Wrapf(types.ErrNothingStaked, "%s has no open stake", staker)
	}
	s, err := v.settle(tx, staker, current)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}

	principal, reward := s.Amount, s.RewardDebt
	totalBefore := v.totalStaked
	v.setStake(tx, staker, types.StakeInfo{}, totalBefore.Sub(principal))
	tx.Emit(types.NewEvent(v.component, "withdrawn",
		types.Attr("account", staker),
		types.Attr("principal", principal),
		types.Attr("reward", reward),
		types.Attr("total_staked_before", totalBefore),
		types.Attr("total_staked_after", v.totalStaked),
	))

	if err := v.pay(tx, v.stakingToken, staker, principal); err != nil {
		return math.Int{}, math.Int{}, err
	}
	if err := v.pay(tx, v.rewardToken, staker, reward); err != nil {
		return math.Int{}, math.Int{}, err
	}

	v.logger.Debug().
		Str("account", staker.String()).
		Str("principal", principal.String()).
		Str("reward", reward.String()).
		Msg("Withdrawn")
	return principal, reward, nil
}

// pay moves amount of asset from the vault to account. Zero amounts are skipped.
func (v *Vault) pay(tx *chain.Tx, asset TokenLedger, to types.Address, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	return tx.Call(v.address, func() error {
		_, err := asset.Transfer(tx, to, amount)
		return err
	})
}
