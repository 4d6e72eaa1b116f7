/*

Package vault implements a staking vault. Stakers lock one asset and accrue rewards in
another at a fixed rate per staked unit per period, linearly in elapsed time. Rewards
are paid from whatever reward balance the vault holds; anyone may fund it with a plain
transfer.

*/

package vault

import (
	"math/big"
	"sort"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/logger"
	"github.com/elys-network/ammcore/internal/types"
)

// DefaultRatePeriod is the period the reward rate refers to when none is configured.
const DefaultRatePeriod = time.Hour

// Config describes a vault at deployment.
type Config struct {
	StakingToken TokenLedger
	RewardToken  TokenLedger
	RewardRate   math.LegacyDec // reward units per staked unit per RatePeriod
	RatePeriod   time.Duration
	// Clock is read by the views and should never run behind the chain; the chain itself
	// qualifies. Readings earlier than a position's checkpoint project nothing. nil
	// means the system clock.
	Clock chain.Clock
}

type Vault struct {
	address      types.Address
	stakingToken TokenLedger
	rewardToken  TokenLedger
	rewardRate   math.LegacyDec
	ratePeriod   time.Duration
	clock        chain.Clock
	component    string
	logger       zerolog.Logger

	stakes      map[types.Address]types.StakeInfo
	totalStaked math.Int
}

// New deploys an empty vault inside tx.
func New(tx *chain.Tx, cfg Config) (*Vault, error) {
	if cfg.StakingToken == nil || cfg.RewardToken == nil {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "staking and reward assets are required")
	}
	if cfg.StakingToken.Address() == cfg.RewardToken.Address() {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "staking and reward assets must differ")
	}
	if cfg.RewardRate.IsNil() || cfg.RewardRate.IsNegative() {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "reward rate must not be negative")
	}
	period := cfg.RatePeriod
	if period == 0 {
		period = DefaultRatePeriod
	}
	if period < 0 {
		return nil, errorsmod.Wrapf(types.ErrInvalidArgument, "rate period %s is negative", period)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = chain.SystemClock{}
	}

	name := cfg.StakingToken.Symbol() + "-" + cfg.RewardToken.Symbol()
	v := &Vault{
		address:      chain.NewAddress("vault", name),
		stakingToken: cfg.StakingToken,
		rewardToken:  cfg.RewardToken,
		rewardRate:   cfg.RewardRate,
		ratePeriod:   period,
		clock:        clock,
		component:    "vault/" + name,
		logger:       logger.GetForComponent("vault").With().Str("vault", name).Logger(),
		stakes:       make(map[types.Address]types.StakeInfo),
		totalStaked:  math.ZeroInt(),
	}

	v.logger.Debug().
		Str("deployer", tx.Sender().String()).
		Str("reward_rate", v.rewardRate.String()).
		Dur("rate_period", v.ratePeriod).
		Msg("Vault deployed")
	return v, nil
}

func (v *Vault) Address() types.Address { return v.address }
func (v *Vault) StakingToken() TokenLedger { return v.stakingToken }
func (v *Vault) RewardToken() TokenLedger { return v.rewardToken }
func (v *Vault) RewardRate() math.LegacyDec { return v.rewardRate }
func (v *Vault) RatePeriod() time.Duration { return v.ratePeriod }
func (v *Vault) TotalStaked() math.Int { return v.totalStaked }

// RewardReserve returns the reward balance available for payouts.
func (v *Vault) RewardReserve() math.Int {
	return v.rewardToken.BalanceOf(v.address)
}

// Stakes returns account's position with RewardDebt projected to the current clock
// reading. Nothing is written.
func (v *Vault) Stakes(account types.Address) types.StakeInfo {
	s, ok := v.stakes[account]
	if !ok {
		return types.StakeInfo{Amount: math.ZeroInt(), RewardDebt: math.ZeroInt()}
	}
	now := v.clock.Now()
	if now.Before(s.LastUpdate) {
		now = s.LastUpdate
	}
	debt, err := v.accrueInto(s, now)
	if err != nil {
		v.logger.Warn().Err(err).Str("account", account.String()).Msg("Reward projection failed")
		return s
	}
	s.RewardDebt = debt
	return s
}

// PendingReward returns everything account would receive in rewards if it withdrew now.
func (v *Vault) PendingReward(account types.Address) math.Int {
	return v.Stakes(account).RewardDebt
}

// Stakers lists every account with an open position, sorted.
func (v *Vault) Stakers() []types.Address {
	out := make([]types.Address, 0, len(v.stakes))
	for a := range v.stakes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SumStakes adds up every staked amount. It equals TotalStaked whenever the vault is consistent.
func (v *Vault) SumStakes() math.Int {
	sum := math.ZeroInt()
	for _, s := range v.stakes {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// accrued computes staked * rate * elapsed / period, truncated. Zero elapsed time,
// or a clock behind the checkpoint, accrues nothing.
func (v *Vault) accrued(s types.StakeInfo, now time.Time) (math.Int, error) {
	if s.IsEmpty() || !now.After(s.LastUpdate) {
		return math.ZeroInt(), nil
	}
	elapsed := now.Sub(s.LastUpdate)

	// rate is an 18-decimal fixed-point value: rate = rate.BigInt() / 10^18
	num := new(big.Int).Mul(s.Amount.BigInt(), v.rewardRate.BigInt())
	num.Mul(num, big.NewInt(int64(elapsed)))
	den := new(big.Int).Mul(big.NewInt(int64(v.ratePeriod)), math.LegacyOneDec().BigInt())
	reward := num.Quo(num, den)

	if reward.BitLen() > math.MaxBitLen {
		return math.Int{}, errorsmod.Wrapf(types.ErrInvalidAmount, "reward for %s over %s overflows", s.Amount, elapsed)
	}
	return math.NewIntFromBigInt(reward), nil
}

// accrueInto returns RewardDebt plus the reward accrued up to now.
func (v *Vault) accrueInto(s types.StakeInfo, now time.Time) (math.Int, error) {
	pending, err := v.accrued(s, now)
	if err != nil {
		return math.Int{}, err
	}
	debt := s.RewardDebt
	if debt.IsNil() {
		debt = math.ZeroInt()
	}
	total, err := debt.SafeAdd(pending)
	if err != nil {
		return math.Int{}, errorsmod.Wrapf(types.ErrInvalidAmount, "reward debt %s overflows", debt)
	}
	return total, nil
}

// settle folds the reward accrued since the last checkpoint into RewardDebt and
// moves the checkpoint to the transaction time.
func (v *Vault) settle(tx *chain.Tx, account types.Address, s types.StakeInfo) (types.StakeInfo, error) {
	now := tx.Now()
	if s.RewardDebt.IsNil() {
		s.RewardDebt = math.ZeroInt()
	}
	if s.Amount.IsNil() {
		s.Amount = math.ZeroInt()
	}
	debt, err := v.accrueInto(s, now)
	if err != nil {
		return s, err
	}
	if pending := debt.Sub(s.RewardDebt); pending.IsPositive() {
		tx.Emit(types.NewEvent(v.component, "reward_settled",
			types.Attr("account", account),
			types.Attr("staked", s.Amount),
			types.Attr("elapsed", now.Sub(s.LastUpdate)),
			types.Attr("reward", pending),
			types.Attr("reward_debt_before", s.RewardDebt),
			types.Attr("reward_debt_after", debt),
		))
	}
	s.RewardDebt = debt
	s.LastUpdate = now
	return s, nil
}

// --- journaled setters ---

func (v *Vault) setStake(tx *chain.Tx, account types.Address, s types.StakeInfo, total math.Int) {
	prev, had := v.stakes[account]
	prevTotal := v.totalStaked
	if s.IsEmpty() && (s.RewardDebt.IsNil() || s.RewardDebt.IsZero()) {
		delete(v.stakes, account)
	} else {
		v.stakes[account] = s
	}
	v.totalStaked = total
	tx.OnRevert(func() {
		v.totalStaked = prevTotal
		if had {
			v.stakes[account] = prev
		} else {
			delete(v.stakes, account)
		}
	})
}
