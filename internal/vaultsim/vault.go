// Package vaultsim is an in-process accounting double for a deployed
// vault/strategy pair. Scenario drivers run against it the same way they run
// against a lab chain node: deposit, harvest, perturb balances, withdraw.
package vaultsim

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"vault-harvest-lab/internal/domain"
)

// Simulator errors.
var (
	ErrInsufficientShares = errors.New("holder does not own that many shares")
	ErrLossAboveMax       = errors.New("withdrawal loss exceeds max loss")
	ErrHealthCheck        = errors.New("health check refused loss report")
	ErrEmptyPosition      = errors.New("destination protocol refuses operations on an empty position")
	ErrInvalidDebtRatio   = errors.New("debt ratio above maximum basis points")
	ErrVaultInsolvent     = errors.New("outstanding shares are backed by no assets")
)

// Config sets up a simulated vault/strategy pair.
type Config struct {
	Decimals     uint8
	YieldBpsDay  uint64 // yield accrued per simulated day, in bps of strategy balance
	ResidualDust int64  // dust a fully drained destination keeps; 0 disables dust behavior
}

// Vault simulates vault and strategy accounting under a single lock. The
// vault's books are totalIdle + totalDebt; the strategy's real holdings are
// tracked separately so drains and donations can desynchronize the two, which
// is exactly what the harvest scenarios exercise.
type Vault struct {
	mu sync.Mutex

	decimals uint8

	totalSupply *big.Int
	totalIdle   *big.Int
	balances    map[string]*big.Int

	debtRatio uint64
	totalDebt *big.Int
	totalGain *big.Int
	totalLoss *big.Int

	// strategyBalance is what the strategy actually holds externally.
	strategyBalance *big.Int

	yieldBpsDay  uint64
	residualDust *big.Int
	healthCheck  bool
	clock        time.Duration
}

// New creates a simulated vault with an attached strategy at a full
// allocation (10000 bps).
func New(cfg Config) *Vault {
	return &Vault{
		decimals:        cfg.Decimals,
		totalSupply:     big.NewInt(0),
		totalIdle:       big.NewInt(0),
		balances:        make(map[string]*big.Int),
		debtRatio:       domain.MaxBPS,
		totalDebt:       big.NewInt(0),
		totalGain:       big.NewInt(0),
		totalLoss:       big.NewInt(0),
		strategyBalance: big.NewInt(0),
		yieldBpsDay:     cfg.YieldBpsDay,
		residualDust:    big.NewInt(cfg.ResidualDust),
		healthCheck:     true,
	}
}

// totalAssets is idle plus debt; callers hold the lock.
func (v *Vault) totalAssets() *big.Int {
	return new(big.Int).Add(v.totalIdle, v.totalDebt)
}

// pricePerShare is totalAssets/totalSupply scaled by 10^decimals, or the unit
// price for an empty vault; callers hold the lock.
func (v *Vault) pricePerShare() *big.Int {
	if v.totalSupply.Sign() == 0 {
		return domain.UnitPrice(v.decimals)
	}
	pps := new(big.Int).Mul(v.totalAssets(), domain.UnitPrice(v.decimals))
	return pps.Div(pps, v.totalSupply)
}

// Snapshot captures the current vault-level state.
func (v *Vault) Snapshot() *domain.VaultSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return &domain.VaultSnapshot{
		TotalAssets:   v.totalAssets(),
		TotalSupply:   new(big.Int).Set(v.totalSupply),
		PricePerShare: v.pricePerShare(),
		TotalIdle:     new(big.Int).Set(v.totalIdle),
		Decimals:      v.decimals,
	}
}

// StrategyParams captures the current per-strategy state.
func (v *Vault) StrategyParams() *domain.StrategyParams {
	v.mu.Lock()
	defer v.mu.Unlock()
	return &domain.StrategyParams{
		DebtRatio:       v.debtRatio,
		TotalDebt:       new(big.Int).Set(v.totalDebt),
		TotalGain:       new(big.Int).Set(v.totalGain),
		TotalLoss:       new(big.Int).Set(v.totalLoss),
		EstimatedAssets: new(big.Int).Set(v.strategyBalance),
	}
}

// SharesOf returns the holder's share balance.
func (v *Vault) SharesOf(holder string) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if b, ok := v.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// Deposit mints shares for the holder at the current share price. Funds sit
// idle until the next harvest extends credit to the strategy. A vault whose
// outstanding shares are backed by nothing has no price to mint at, so a
// deposit after a total loss is refused.
func (v *Vault) Deposit(holder string, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	var shares *big.Int
	if v.totalSupply.Sign() == 0 {
		shares = new(big.Int).Set(amount)
	} else {
		assets := v.totalAssets()
		if assets.Sign() == 0 {
			return nil, ErrVaultInsolvent
		}
		shares = new(big.Int).Mul(amount, v.totalSupply)
		shares.Div(shares, assets)
	}

	v.totalIdle.Add(v.totalIdle, amount)
	v.totalSupply.Add(v.totalSupply, shares)
	v.creditShares(holder, shares)
	return shares, nil
}

// Harvest reports the strategy's position back to the vault. It realizes
// profit or loss against the booked debt, marks the debt ratio down on loss,
// and then rebalances credit toward the target allocation. Returns the
// realized (profit, loss, extra) triple.
func (v *Vault) Harvest() (profit, loss, extra *big.Int, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dustRefusesOperation() {
		return nil, nil, nil, ErrEmptyPosition
	}

	profit = big.NewInt(0)
	loss = big.NewInt(0)
	extra = big.NewInt(0)

	switch v.strategyBalance.Cmp(v.totalDebt) {
	case 1:
		profit.Sub(v.strategyBalance, v.totalDebt)
		v.totalGain.Add(v.totalGain, profit)
		v.strategyBalance.Sub(v.strategyBalance, profit)
		v.totalIdle.Add(v.totalIdle, profit)
	case -1:
		loss.Sub(v.totalDebt, v.strategyBalance)

		// A drained dusty destination keeps its dust; the vault writes the
		// dust off its books instead of counting it as loss.
		if v.residualDust.Sign() > 0 && v.strategyBalance.Cmp(v.residualDust) <= 0 {
			extra.Set(v.strategyBalance)
			loss.Sub(v.totalDebt, extra)
		}

		if v.healthCheck && loss.Sign() > 0 {
			return nil, nil, nil, ErrHealthCheck
		}

		v.totalLoss.Add(v.totalLoss, loss)
		v.markDownDebtRatio(loss, extra)
		v.totalDebt.Sub(v.totalDebt, loss)
		if extra.Sign() > 0 && v.totalDebt.Cmp(extra) == 0 {
			v.totalDebt.SetInt64(0)
		}
	}

	v.rebalance()
	return profit, loss, extra, nil
}

// markDownDebtRatio reduces the allocation proportionally to the fraction of
// vault assets lost; callers hold the lock with the loss not yet booked.
func (v *Vault) markDownDebtRatio(loss, extra *big.Int) {
	if loss.Sign() == 0 {
		return
	}
	assets := v.totalAssets()
	if assets.Sign() > 0 {
		markdown := new(big.Int).Mul(loss, big.NewInt(domain.MaxBPS))
		markdown.Div(markdown, assets)
		if markdown.Cmp(new(big.Int).SetUint64(v.debtRatio)) > 0 {
			v.debtRatio = 0
		} else {
			v.debtRatio -= markdown.Uint64()
		}
	}
	if v.debtRatio == 0 && extra.Sign() > 0 {
		v.debtRatio = 1
	}
}

// rebalance moves funds toward the debt-ratio target; callers hold the lock.
func (v *Vault) rebalance() {
	target := new(big.Int).Mul(v.totalAssets(), new(big.Int).SetUint64(v.debtRatio))
	target.Div(target, big.NewInt(domain.MaxBPS))

	switch v.totalDebt.Cmp(target) {
	case -1:
		credit := new(big.Int).Sub(target, v.totalDebt)
		if credit.Cmp(v.totalIdle) > 0 {
			credit.Set(v.totalIdle)
		}
		v.totalIdle.Sub(v.totalIdle, credit)
		v.totalDebt.Add(v.totalDebt, credit)
		v.strategyBalance.Add(v.strategyBalance, credit)
	case 1:
		repay := new(big.Int).Sub(v.totalDebt, target)
		available := new(big.Int).Set(v.strategyBalance)
		if v.residualDust.Sign() > 0 {
			available.Sub(available, v.residualDust)
			if available.Sign() < 0 {
				available.SetInt64(0)
			}
		}
		if repay.Cmp(available) > 0 {
			repay.Set(available)
		}
		v.strategyBalance.Sub(v.strategyBalance, repay)
		v.totalDebt.Sub(v.totalDebt, repay)
		v.totalIdle.Add(v.totalIdle, repay)
	}
}

// Withdraw burns the holder's shares for a pro-rata claim, serving it from
// idle funds first and reaching into the strategy for the remainder. Any
// shortfall is recognized as the withdrawing actor's loss and must be within
// maxLossBps of the claim.
func (v *Vault) Withdraw(holder string, shares *big.Int, maxLossBps uint64) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, fmt.Errorf("share count must be positive")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	held, ok := v.balances[holder]
	if !ok || held.Cmp(shares) < 0 {
		return nil, ErrInsufficientShares
	}
	if v.dustRefusesOperation() {
		return nil, ErrEmptyPosition
	}

	claim := new(big.Int).Mul(v.totalAssets(), shares)
	claim.Div(claim, v.totalSupply)

	fromIdle := new(big.Int).Set(claim)
	if fromIdle.Cmp(v.totalIdle) > 0 {
		fromIdle.Set(v.totalIdle)
	}
	remainder := new(big.Int).Sub(claim, fromIdle)

	recovered := new(big.Int).Set(remainder)
	if recovered.Cmp(v.strategyBalance) > 0 {
		recovered.Set(v.strategyBalance)
	}
	loss := new(big.Int).Sub(remainder, recovered)

	if loss.Sign() > 0 {
		maxLoss := new(big.Int).Mul(claim, new(big.Int).SetUint64(maxLossBps))
		maxLoss.Div(maxLoss, big.NewInt(domain.MaxBPS))
		if loss.Cmp(maxLoss) > 0 {
			return nil, ErrLossAboveMax
		}
	}

	burnedAll := shares.Cmp(v.totalSupply) == 0

	v.totalIdle.Sub(v.totalIdle, fromIdle)
	v.strategyBalance.Sub(v.strategyBalance, recovered)
	if remainder.Sign() > 0 {
		debited := new(big.Int).Add(recovered, loss)
		v.totalDebt.Sub(v.totalDebt, debited)
		if v.totalDebt.Sign() < 0 {
			v.totalDebt.SetInt64(0)
		}
		v.totalLoss.Add(v.totalLoss, loss)

		// Shares burn pro-rata with the loss, so the remaining holders keep
		// their share price; the allocation shrinks to their ownership.
		remaining := new(big.Int).Sub(v.totalSupply, shares)
		remaining.Mul(remaining, big.NewInt(domain.MaxBPS))
		remaining.Div(remaining, v.totalSupply)
		v.debtRatio = remaining.Uint64()
		if v.debtRatio == 0 && v.residualDust.Sign() > 0 {
			v.debtRatio = 1
		}
	}

	if burnedAll && v.totalDebt.Sign() > 0 && v.totalDebt.Cmp(v.residualDust) <= 0 {
		v.totalDebt.SetInt64(0)
	}

	held.Sub(held, shares)
	v.totalSupply.Sub(v.totalSupply, shares)

	payout := new(big.Int).Add(fromIdle, recovered)
	return payout, nil
}

// SetDebtRatio reallocates the strategy's target allocation.
func (v *Vault) SetDebtRatio(bps uint64) error {
	if bps > domain.MaxBPS {
		return ErrInvalidDebtRatio
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.debtRatio = bps
	return nil
}

// SetHealthCheck toggles the loss gate on harvest reports.
func (v *Vault) SetHealthCheck(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.healthCheck = on
}

// Drain moves the strategy's entire external balance away, simulating an
// exploit of the destination protocol. The vault's books are untouched.
func (v *Vault) Drain() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	moved := new(big.Int).Set(v.strategyBalance)
	v.strategyBalance.SetInt64(0)
	return moved
}

// Inject donates funds directly to the strategy's external balance, the way
// a profit donor (or a dust top-up) would.
func (v *Vault) Inject(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("injected amount must be positive")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.strategyBalance.Add(v.strategyBalance, amount)
	return nil
}

// Sleep advances simulated time and accrues yield on the strategy's balance
// at the configured daily rate.
func (v *Vault) Sleep(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clock += d
	if v.yieldBpsDay == 0 || v.strategyBalance.Sign() == 0 {
		return
	}
	accrued := new(big.Int).Mul(v.strategyBalance, new(big.Int).SetUint64(v.yieldBpsDay))
	accrued.Mul(accrued, big.NewInt(int64(d/time.Second)))
	accrued.Div(accrued, big.NewInt(int64(domain.MaxBPS)*86_400))
	v.strategyBalance.Add(v.strategyBalance, accrued)
}

// Clock returns the simulated elapsed time.
func (v *Vault) Clock() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.clock
}

// dustRefusesOperation reports whether the dusty destination refuses to act
// on a fully emptied position; callers hold the lock.
func (v *Vault) dustRefusesOperation() bool {
	return v.residualDust.Sign() > 0 && v.strategyBalance.Sign() == 0 && v.totalDebt.Sign() > 0
}

func (v *Vault) creditShares(holder string, shares *big.Int) {
	if b, ok := v.balances[holder]; ok {
		b.Add(b, shares)
		return
	}
	v.balances[holder] = new(big.Int).Set(shares)
}
