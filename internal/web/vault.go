package web

import (
	"net/http"
	"time"

	"cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/types"
)

type stakeRequest struct {
	Sender string `json:"sender"`
	Amount string `json:"amount"`
}

type stakeResponse struct {
	Account    types.Address `json:"account"`
	Staked     amountView    `json:"staked"`
	Reward     amountView    `json:"reward"` // settled plus pending at the current chain time
	LastUpdate time.Time     `json:"last_update"`
	AsOf       time.Time     `json:"as_of"`
}

// handleGetVault returns the vault's configuration and totals
func (ws *WebServer) handleGetVault(w http.ResponseWriter, r *http.Request) {
	v := ws.protocol.Vault()
	var total, reserve math.Int
	var stakers int
	ws.protocol.Read(func() {
		total = v.TotalStaked()
		reserve = v.RewardReserve()
		stakers = len(v.Stakers())
	})
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"address":        v.Address(),
		"staking_token":  v.StakingToken().Symbol(),
		"reward_token":   v.RewardToken().Symbol(),
		"reward_rate":    v.RewardRate(),
		"rate_period":    v.RatePeriod().String(),
		"total_staked":   viewAmount(total),
		"reward_reserve": viewAmount(reserve),
		"stakers_count":  stakers,
		"as_of":          ws.protocol.Chain().Now(),
	})
}

// handleGetStake returns one account's position with its reward projected to now
func (ws *WebServer) handleGetStake(w http.ResponseWriter, r *http.Request) {
	account := types.Address(mux.Vars(r)["account"])
	var info types.StakeInfo
	var asOf time.Time
	ws.protocol.Read(func() {
		info = ws.protocol.Vault().Stakes(account)
		asOf = ws.protocol.Chain().Now()
	})
	ws.writeJSONResponse(w, http.StatusOK, stakeResponse{
		Account:    account,
		Staked:     viewAmount(info.Amount),
		Reward:     viewAmount(info.RewardDebt),
		LastUpdate: info.LastUpdate,
		AsOf:       asOf,
	})
}

func (ws *WebServer) handleStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "stake", func(tx *chain.Tx) (interface{}, error) {
		return map[string]interface{}{"staked": viewAmount(amount)}, ws.protocol.Vault().Stake(tx, amount)
	})
}

func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req senderRequest
	if err := decodeJSON(r, &req); err != nil {
		ws.writeRequestError(w, err)
		return
	}
	ws.execute(w, r, req.Sender, "withdraw", func(tx *chain.Tx) (interface{}, error) {
		principal, reward, err := ws.protocol.Vault().Withdraw(tx)
		return map[string]interface{}{"principal": viewAmount(principal), "reward": viewAmount(reward)}, err
	})
}
