package oracle

import (
	"errors"
	"math/big"
	"testing"

	"vault-harvest-lab/internal/domain"
)

const decimals = 6

func bi(v int64) *big.Int {
	return big.NewInt(v)
}

// healthyView returns a vault with all assets deployed to the strategy at the
// unit share price.
func healthyView(assets int64) (*domain.VaultSnapshot, *domain.StrategyParams) {
	snap := &domain.VaultSnapshot{
		TotalAssets:   bi(assets),
		TotalSupply:   bi(assets),
		PricePerShare: domain.UnitPrice(decimals),
		TotalIdle:     bi(0),
		Decimals:      decimals,
	}
	params := &domain.StrategyParams{
		DebtRatio:       domain.MaxBPS,
		TotalDebt:       bi(assets),
		TotalGain:       bi(0),
		TotalLoss:       bi(0),
		EstimatedAssets: bi(assets),
	}
	return snap, params
}

func TestExpect_NoOpIdentity(t *testing.T) {
	for _, mode := range []domain.AccountingMode{domain.Exact(), domain.SlippageTolerant(1e-4)} {
		snap, params := healthyView(1_000_000)

		out, err := Expect(snap, params, domain.NoOpEvent(), mode)
		if err != nil {
			t.Fatalf("Expect failed: %v", err)
		}

		if out.TotalAssets.Cmp(snap.TotalAssets) != 0 {
			t.Errorf("TotalAssets changed on no-op: %s", out.TotalAssets)
		}
		if out.TotalGain.Cmp(params.TotalGain) != 0 || out.TotalLoss.Cmp(params.TotalLoss) != 0 {
			t.Error("gain/loss changed on no-op")
		}
		if out.PricePerShare.Cmp(snap.PricePerShare) != 0 {
			t.Errorf("price per share changed on no-op: %s", out.PricePerShare)
		}
		if *out.DebtRatio != params.DebtRatio {
			t.Errorf("debt ratio changed on no-op: %d", *out.DebtRatio)
		}
	}
}

func TestExpect_Idempotent(t *testing.T) {
	snap, params := healthyView(1_000_000)
	event := domain.ProfitEvent(bi(5_000))

	first, err := Expect(snap, params, event, domain.Exact())
	if err != nil {
		t.Fatalf("first Expect failed: %v", err)
	}
	second, err := Expect(snap, params, event, domain.Exact())
	if err != nil {
		t.Fatalf("second Expect failed: %v", err)
	}

	if first.TotalGain.Cmp(second.TotalGain) != 0 ||
		first.TotalAssets.Cmp(second.TotalAssets) != 0 ||
		*first.DebtRatio != *second.DebtRatio {
		t.Error("identical inputs produced different outcomes")
	}
}

func TestExpect_Profit(t *testing.T) {
	snap, params := healthyView(1_000_000)
	params.TotalGain = bi(100)

	out, err := Expect(snap, params, domain.ProfitEvent(bi(5_000)), domain.Exact())
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}

	if out.TotalGain.Cmp(bi(5_100)) != 0 {
		t.Errorf("TotalGain = %s, want 5100", out.TotalGain)
	}
	if out.TotalLoss.Cmp(bi(0)) != 0 {
		t.Errorf("TotalLoss = %s, want 0", out.TotalLoss)
	}
	if out.PriceDirection != domain.PriceUp {
		t.Errorf("PriceDirection = %s, want UP", out.PriceDirection)
	}
	if *out.DebtRatio != domain.MaxBPS {
		t.Errorf("DebtRatio = %d, want %d", *out.DebtRatio, domain.MaxBPS)
	}
}

func TestExpect_FullDrainLoss(t *testing.T) {
	const assets = 1_000_000
	snap, params := healthyView(assets)
	params.EstimatedAssets = bi(0)

	out, err := Expect(snap, params, domain.LossEvent(bi(assets), bi(0)), domain.Exact())
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}

	if *out.DebtRatio != 0 {
		t.Errorf("DebtRatio = %d, want 0", *out.DebtRatio)
	}
	if out.TotalLoss.Cmp(bi(assets)) != 0 {
		t.Errorf("TotalLoss = %s, want %d", out.TotalLoss, int64(assets))
	}
	if out.TotalDebt.Sign() != 0 {
		t.Errorf("TotalDebt = %s, want 0", out.TotalDebt)
	}
	if out.PricePerShare == nil || out.PricePerShare.Sign() != 0 {
		t.Errorf("PricePerShare = %v, want exact 0", out.PricePerShare)
	}
	if out.DebtOutstanding == nil || out.DebtOutstanding.Sign() != 0 {
		t.Errorf("DebtOutstanding = %v, want 0", out.DebtOutstanding)
	}
}

func TestExpect_FullDrainLossWithResidualDust(t *testing.T) {
	const assets = 1_000_000
	const dust = 5
	snap, params := healthyView(assets)
	params.EstimatedAssets = bi(dust)

	out, err := Expect(snap, params, domain.LossEvent(bi(assets-dust), bi(dust)), domain.Exact())
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}

	if *out.DebtRatio != 1 {
		t.Errorf("DebtRatio = %d, want 1", *out.DebtRatio)
	}
	if out.TotalLoss.Cmp(bi(assets-dust)) != 0 {
		t.Errorf("TotalLoss = %s, want %d", out.TotalLoss, int64(assets-dust))
	}
	if out.TotalDebt.Sign() != 0 {
		t.Errorf("TotalDebt = %s, want 0", out.TotalDebt)
	}
	// Dust keeps the position open, so the price never pins to exact zero.
	if out.PricePerShare != nil {
		t.Errorf("PricePerShare pinned to %s with dust remaining", out.PricePerShare)
	}
}

func TestExpect_PartialWithdraw_MultiHolder(t *testing.T) {
	const assets = 2_000_000
	snap, params := healthyView(assets)

	// Actor owns half the supply; strategy is healthy, so no unrealized loss.
	out, err := Expect(snap, params, domain.WithdrawEvent(bi(assets/2), bi(0)), domain.Exact())
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}

	if out.TotalLoss.Cmp(bi(0)) != 0 {
		t.Errorf("TotalLoss = %s, want 0 (no harvest occurred)", out.TotalLoss)
	}
	if *out.DebtRatio != 5_000 {
		t.Errorf("DebtRatio = %d, want 5000", *out.DebtRatio)
	}
	if out.PricePerShare.Cmp(snap.PricePerShare) != 0 {
		t.Errorf("PricePerShare = %s, want unchanged %s", out.PricePerShare, snap.PricePerShare)
	}
	if out.TotalGain.Cmp(bi(0)) != 0 {
		t.Errorf("TotalGain = %s, want 0", out.TotalGain)
	}
}

func TestExpect_PartialWithdraw_DrainedStrategy(t *testing.T) {
	const assets = 2_000_000
	snap, params := healthyView(assets)
	params.EstimatedAssets = bi(0) // drained externally, loss not yet realized

	out, err := Expect(snap, params, domain.WithdrawEvent(bi(assets/2), bi(0)), domain.Exact())
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}

	// Only the withdrawn actor's half of the unrealized loss is recognized.
	if out.TotalLoss.Cmp(bi(assets/2)) != 0 {
		t.Errorf("TotalLoss = %s, want %d", out.TotalLoss, int64(assets/2))
	}
	if *out.DebtRatio != 5_000 {
		t.Errorf("DebtRatio = %d, want 5000", *out.DebtRatio)
	}
	if out.TotalDebt.Cmp(bi(assets/2)) != 0 {
		t.Errorf("TotalDebt = %s, want %d", out.TotalDebt, int64(assets/2))
	}
	// Shares burn pro-rata with the loss, so the price is untouched.
	if out.PricePerShare.Cmp(snap.PricePerShare) != 0 {
		t.Errorf("PricePerShare = %s, want unchanged", out.PricePerShare)
	}
	// Remaining debt above the marked-down ratio is owed back to the vault.
	wantOutstanding := new(big.Int).Mul(out.TotalAssets, bi(5_000))
	wantOutstanding.Div(wantOutstanding, bi(domain.MaxBPS))
	if out.DebtOutstanding.Cmp(wantOutstanding) != 0 {
		t.Errorf("DebtOutstanding = %s, want %s", out.DebtOutstanding, wantOutstanding)
	}
}

func TestExpect_FullWithdraw_SingleHolder(t *testing.T) {
	const assets = 1_000_000
	snap, params := healthyView(assets)
	params.EstimatedAssets = bi(0)

	out, err := Expect(snap, params, domain.WithdrawEvent(bi(assets), bi(0)), domain.Exact())
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}

	if out.TotalLoss.Cmp(bi(assets)) != 0 {
		t.Errorf("TotalLoss = %s, want %d", out.TotalLoss, int64(assets))
	}
	if *out.DebtRatio != 0 {
		t.Errorf("DebtRatio = %d, want 0", *out.DebtRatio)
	}
	if out.TotalDebt.Sign() != 0 {
		t.Errorf("TotalDebt = %s, want 0", out.TotalDebt)
	}
	// All shares burned: the empty vault reports the unit price again.
	if out.PricePerShare.Cmp(domain.UnitPrice(decimals)) != 0 {
		t.Errorf("PricePerShare = %s, want unit", out.PricePerShare)
	}
}

func TestExpect_FullWithdraw_ResidualDust(t *testing.T) {
	const assets = 1_000_000
	const dust = 1
	snap, params := healthyView(assets)
	params.EstimatedAssets = bi(dust)

	out, err := Expect(snap, params, domain.WithdrawEvent(bi(assets), bi(dust)), domain.Exact())
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}

	if *out.DebtRatio != 1 {
		t.Errorf("DebtRatio = %d, want 1", *out.DebtRatio)
	}
	if out.TotalLoss.Cmp(bi(assets-dust)) != 0 {
		t.Errorf("TotalLoss = %s, want %d", out.TotalLoss, int64(assets-dust))
	}
	if out.TotalDebt.Sign() != 0 {
		t.Errorf("TotalDebt = %s, want 0", out.TotalDebt)
	}
}

func TestExpect_ToleranceMisuse(t *testing.T) {
	snap, params := healthyView(1_000_000)

	for _, tolerance := range []float64{0, -0.01} {
		_, err := Expect(snap, params, domain.NoOpEvent(), domain.SlippageTolerant(tolerance))
		if !errors.Is(err, ErrToleranceMisuse) {
			t.Errorf("tolerance %v: got %v, want ErrToleranceMisuse", tolerance, err)
		}
	}
}

func TestExpect_UnsupportedEventShapes(t *testing.T) {
	snap, params := healthyView(1_000_000)

	cases := []struct {
		name  string
		event *domain.HarvestEvent
	}{
		{"nil amount", &domain.HarvestEvent{Kind: domain.EventProfit}},
		{"negative profit", &domain.HarvestEvent{Kind: domain.EventProfit, Amount: bi(-1), Extra: bi(0)}},
		{"no-op with amount", &domain.HarvestEvent{Kind: domain.EventNoOp, Amount: bi(1), Extra: bi(0)}},
		{"loss above debt", domain.LossEvent(bi(2_000_000), bi(0))},
		{"withdraw zero shares", domain.WithdrawEvent(bi(0), bi(0))},
		{"withdraw above supply", domain.WithdrawEvent(bi(2_000_000), bi(0))},
		{"unknown kind", &domain.HarvestEvent{Kind: "REBALANCE", Amount: bi(0), Extra: bi(0)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Expect(snap, params, tc.event, domain.Exact()); !errors.Is(err, ErrUnsupportedEvent) {
				t.Errorf("got %v, want ErrUnsupportedEvent", err)
			}
		})
	}
}
