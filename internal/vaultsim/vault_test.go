package vaultsim

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"vault-harvest-lab/internal/domain"
)

const decimals = 6

func bi(v int64) *big.Int {
	return big.NewInt(v)
}

// seeded returns a vault with one holder fully deployed into the strategy.
func seeded(t *testing.T, cfg Config, holder string, amount int64) *Vault {
	t.Helper()
	v := New(cfg)
	if _, err := v.Deposit(holder, bi(amount)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, _, _, err := v.Harvest(); err != nil {
		t.Fatalf("first harvest failed: %v", err)
	}
	return v
}

func TestDepositAndFirstHarvest(t *testing.T) {
	v := New(Config{Decimals: decimals})

	shares, err := v.Deposit("whale", bi(1_000_000))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if shares.Cmp(bi(1_000_000)) != 0 {
		t.Errorf("first deposit minted %s shares, want 1000000", shares)
	}

	snap := v.Snapshot()
	if snap.TotalIdle.Cmp(bi(1_000_000)) != 0 {
		t.Errorf("TotalIdle = %s before harvest, want 1000000", snap.TotalIdle)
	}

	profit, loss, _, err := v.Harvest()
	if err != nil {
		t.Fatalf("harvest failed: %v", err)
	}
	if profit.Sign() != 0 || loss.Sign() != 0 {
		t.Errorf("first harvest realized profit=%s loss=%s, want zeros", profit, loss)
	}

	params := v.StrategyParams()
	if params.TotalDebt.Cmp(bi(1_000_000)) != 0 {
		t.Errorf("TotalDebt = %s after credit extension, want 1000000", params.TotalDebt)
	}
	if v.Snapshot().TotalIdle.Sign() != 0 {
		t.Errorf("TotalIdle = %s after credit extension, want 0", v.Snapshot().TotalIdle)
	}
}

func TestProfitHarvestRaisesSharePrice(t *testing.T) {
	v := seeded(t, Config{Decimals: decimals}, "whale", 1_000_000)
	before := v.Snapshot()

	if err := v.Inject(bi(5_000)); err != nil {
		t.Fatalf("inject failed: %v", err)
	}
	profit, loss, _, err := v.Harvest()
	if err != nil {
		t.Fatalf("harvest failed: %v", err)
	}
	if profit.Cmp(bi(5_000)) != 0 || loss.Sign() != 0 {
		t.Errorf("harvest realized profit=%s loss=%s, want 5000/0", profit, loss)
	}

	after := v.Snapshot()
	if after.TotalAssets.Cmp(bi(1_005_000)) != 0 {
		t.Errorf("TotalAssets = %s, want 1005000", after.TotalAssets)
	}
	if after.PricePerShare.Cmp(before.PricePerShare) <= 0 {
		t.Errorf("share price %s did not rise above %s", after.PricePerShare, before.PricePerShare)
	}
	if v.StrategyParams().TotalGain.Cmp(bi(5_000)) != 0 {
		t.Errorf("TotalGain = %s, want 5000", v.StrategyParams().TotalGain)
	}
}

func TestSleepAccruesYield(t *testing.T) {
	v := seeded(t, Config{Decimals: decimals, YieldBpsDay: 100}, "whale", 1_000_000)

	v.Sleep(24 * time.Hour)
	if got := v.Clock(); got != 24*time.Hour {
		t.Errorf("Clock = %v, want 24h", got)
	}

	// 100 bps over one day on a 1000000 balance.
	if est := v.StrategyParams().EstimatedAssets; est.Cmp(bi(1_010_000)) != 0 {
		t.Errorf("EstimatedAssets = %s after a day, want 1010000", est)
	}

	profit, _, _, err := v.Harvest()
	if err != nil {
		t.Fatalf("harvest failed: %v", err)
	}
	if profit.Cmp(bi(10_000)) != 0 {
		t.Errorf("harvest realized %s, want 10000", profit)
	}
}

func TestDrainAndLossHarvest(t *testing.T) {
	v := seeded(t, Config{Decimals: decimals}, "whale", 1_000_000)

	moved := v.Drain()
	if moved.Cmp(bi(1_000_000)) != 0 {
		t.Fatalf("drained %s, want 1000000", moved)
	}

	// The health check refuses the loss until governance disables it.
	if _, _, _, err := v.Harvest(); !errors.Is(err, ErrHealthCheck) {
		t.Fatalf("harvest with health check on: got %v, want ErrHealthCheck", err)
	}
	v.SetHealthCheck(false)

	profit, loss, extra, err := v.Harvest()
	if err != nil {
		t.Fatalf("harvest failed: %v", err)
	}
	if profit.Sign() != 0 || extra.Sign() != 0 {
		t.Errorf("harvest realized profit=%s extra=%s, want zeros", profit, extra)
	}
	if loss.Cmp(bi(1_000_000)) != 0 {
		t.Errorf("loss = %s, want 1000000", loss)
	}

	params := v.StrategyParams()
	if params.DebtRatio != 0 {
		t.Errorf("DebtRatio = %d after full drain, want 0", params.DebtRatio)
	}
	if params.TotalDebt.Sign() != 0 {
		t.Errorf("TotalDebt = %s, want 0", params.TotalDebt)
	}
	if v.Snapshot().PricePerShare.Sign() != 0 {
		t.Errorf("PricePerShare = %s after total loss, want 0", v.Snapshot().PricePerShare)
	}
}

func TestDepositAfterTotalLossRefused(t *testing.T) {
	v := seeded(t, Config{Decimals: decimals}, "whale", 1_000_000)
	v.Drain()
	v.SetHealthCheck(false)
	if _, _, _, err := v.Harvest(); err != nil {
		t.Fatalf("loss harvest failed: %v", err)
	}

	// Shares outstanding but nothing backing them: there is no price to mint
	// a new deposit at.
	if _, err := v.Deposit("fish", bi(1)); !errors.Is(err, ErrVaultInsolvent) {
		t.Fatalf("deposit after total loss: got %v, want ErrVaultInsolvent", err)
	}

	snap := v.Snapshot()
	if snap.TotalSupply.Cmp(bi(1_000_000)) != 0 {
		t.Errorf("TotalSupply = %s after refused deposit, want 1000000", snap.TotalSupply)
	}
	if snap.TotalIdle.Sign() != 0 {
		t.Errorf("TotalIdle = %s after refused deposit, want 0", snap.TotalIdle)
	}
}

func TestDrainWithResidualDust(t *testing.T) {
	v := seeded(t, Config{Decimals: decimals, ResidualDust: 1}, "whale", 1_000_000)
	v.SetHealthCheck(false)
	v.Drain()

	// The destination refuses to operate on a fully emptied position.
	if _, _, _, err := v.Harvest(); !errors.Is(err, ErrEmptyPosition) {
		t.Fatalf("harvest on empty dusty position: got %v, want ErrEmptyPosition", err)
	}

	if err := v.Inject(bi(1)); err != nil {
		t.Fatalf("inject failed: %v", err)
	}
	_, loss, extra, err := v.Harvest()
	if err != nil {
		t.Fatalf("harvest failed: %v", err)
	}
	if loss.Cmp(bi(999_999)) != 0 {
		t.Errorf("loss = %s, want 999999 (dust written off, not lost)", loss)
	}
	if extra.Cmp(bi(1)) != 0 {
		t.Errorf("extra = %s, want 1", extra)
	}

	params := v.StrategyParams()
	if params.TotalDebt.Sign() != 0 {
		t.Errorf("TotalDebt = %s, want 0 after dust write-off", params.TotalDebt)
	}
	if params.DebtRatio != 1 {
		t.Errorf("DebtRatio = %d, want 1 while dust keeps the position open", params.DebtRatio)
	}
}

func TestWithdrawHealthyMultiHolder(t *testing.T) {
	v := New(Config{Decimals: decimals})
	if _, err := v.Deposit("whale", bi(1_000_000)); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Deposit("second", bi(1_000_000)); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := v.Harvest(); err != nil {
		t.Fatal(err)
	}

	before := v.Snapshot()
	payout, err := v.Withdraw("whale", bi(1_000_000), 0)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if payout.Cmp(bi(1_000_000)) != 0 {
		t.Errorf("payout = %s, want 1000000", payout)
	}

	params := v.StrategyParams()
	if params.TotalLoss.Sign() != 0 {
		t.Errorf("TotalLoss = %s on healthy withdrawal, want 0", params.TotalLoss)
	}
	if params.DebtRatio != 5_000 {
		t.Errorf("DebtRatio = %d, want 5000 (remaining holder's share)", params.DebtRatio)
	}
	if after := v.Snapshot(); after.PricePerShare.Cmp(before.PricePerShare) != 0 {
		t.Errorf("PricePerShare moved from %s to %s", before.PricePerShare, after.PricePerShare)
	}
}

func TestWithdrawFromDrainedStrategy(t *testing.T) {
	v := New(Config{Decimals: decimals})
	if _, err := v.Deposit("whale", bi(1_000_000)); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Deposit("second", bi(1_000_000)); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := v.Harvest(); err != nil {
		t.Fatal(err)
	}
	v.Drain()

	// The default max loss refuses a claim this degraded.
	if _, err := v.Withdraw("whale", bi(1_000_000), 0); !errors.Is(err, ErrLossAboveMax) {
		t.Fatalf("withdraw with zero max loss: got %v, want ErrLossAboveMax", err)
	}

	payout, err := v.Withdraw("whale", bi(1_000_000), domain.MaxBPS)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if payout.Sign() != 0 {
		t.Errorf("payout = %s from a drained strategy, want 0", payout)
	}

	params := v.StrategyParams()
	if params.TotalLoss.Cmp(bi(1_000_000)) != 0 {
		t.Errorf("TotalLoss = %s, want the actor's half 1000000", params.TotalLoss)
	}
	if params.TotalDebt.Cmp(bi(1_000_000)) != 0 {
		t.Errorf("TotalDebt = %s, want 1000000", params.TotalDebt)
	}
	if params.DebtRatio != 5_000 {
		t.Errorf("DebtRatio = %d, want 5000", params.DebtRatio)
	}
}

func TestWithdrawLastHolderResetsPrice(t *testing.T) {
	v := seeded(t, Config{Decimals: decimals}, "whale", 1_000_000)
	v.Drain()

	if _, err := v.Withdraw("whale", bi(1_000_000), domain.MaxBPS); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	snap := v.Snapshot()
	if snap.TotalSupply.Sign() != 0 {
		t.Errorf("TotalSupply = %s, want 0", snap.TotalSupply)
	}
	if snap.PricePerShare.Cmp(domain.UnitPrice(decimals)) != 0 {
		t.Errorf("PricePerShare = %s, want unit price for an empty vault", snap.PricePerShare)
	}
	if params := v.StrategyParams(); params.TotalDebt.Sign() != 0 {
		t.Errorf("TotalDebt = %s, want 0", params.TotalDebt)
	}
}

func TestWithdrawInsufficientShares(t *testing.T) {
	v := seeded(t, Config{Decimals: decimals}, "whale", 1_000_000)

	if _, err := v.Withdraw("whale", bi(2_000_000), 0); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("got %v, want ErrInsufficientShares", err)
	}
	if _, err := v.Withdraw("stranger", bi(1), 0); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("got %v, want ErrInsufficientShares", err)
	}
}

func TestSetDebtRatioRebalancesOnHarvest(t *testing.T) {
	v := seeded(t, Config{Decimals: decimals}, "whale", 1_000_000)

	if err := v.SetDebtRatio(20_000); !errors.Is(err, ErrInvalidDebtRatio) {
		t.Fatalf("got %v, want ErrInvalidDebtRatio", err)
	}
	if err := v.SetDebtRatio(4_000); err != nil {
		t.Fatalf("SetDebtRatio failed: %v", err)
	}
	if _, _, _, err := v.Harvest(); err != nil {
		t.Fatalf("harvest failed: %v", err)
	}

	params := v.StrategyParams()
	if params.TotalDebt.Cmp(bi(400_000)) != 0 {
		t.Errorf("TotalDebt = %s after reallocation, want 400000", params.TotalDebt)
	}
	if snap := v.Snapshot(); snap.TotalIdle.Cmp(bi(600_000)) != 0 {
		t.Errorf("TotalIdle = %s, want 600000", snap.TotalIdle)
	}
}
