// Package oracle computes expected vault/strategy accounting outcomes around
// a single harvest or withdrawal and checks observed state against them.
// Evaluation is a pure, synchronous function of its inputs: snapshots go in,
// an expected outcome or a list of violations comes out.
package oracle

import (
	"fmt"
	"math/big"

	"vault-harvest-lab/internal/domain"
)

// Expect computes the expected post-step state for one harvest event applied
// to the given pre-step snapshot pair.
func Expect(pre *domain.VaultSnapshot, preParams *domain.StrategyParams, event *domain.HarvestEvent, mode domain.AccountingMode) (*domain.ExpectedOutcome, error) {
	if err := validateMode(mode); err != nil {
		return nil, err
	}
	if err := validateEvent(pre, preParams, event); err != nil {
		return nil, err
	}

	switch event.Kind {
	case domain.EventNoOp:
		return expectNoOp(pre, preParams, mode), nil
	case domain.EventProfit:
		return expectProfit(pre, preParams, event, mode), nil
	case domain.EventLoss:
		return expectLoss(pre, preParams, event, mode), nil
	case domain.EventWithdraw:
		return expectWithdraw(pre, preParams, event, mode), nil
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupportedEvent, event.Kind)
	}
}

func validateMode(mode domain.AccountingMode) error {
	if mode.Kind == domain.ModeSlippageTolerant && mode.Tolerance <= 0 {
		return fmt.Errorf("%w: got %v", ErrToleranceMisuse, mode.Tolerance)
	}
	return nil
}

func validateEvent(pre *domain.VaultSnapshot, preParams *domain.StrategyParams, event *domain.HarvestEvent) error {
	if event == nil || event.Amount == nil || event.Extra == nil {
		return fmt.Errorf("%w: nil event or amount", ErrUnsupportedEvent)
	}
	if event.Amount.Sign() < 0 || event.Extra.Sign() < 0 {
		return fmt.Errorf("%w: negative amount", ErrUnsupportedEvent)
	}

	switch event.Kind {
	case domain.EventNoOp:
		if event.Amount.Sign() != 0 {
			return fmt.Errorf("%w: no-op event with non-zero amount", ErrUnsupportedEvent)
		}
	case domain.EventProfit:
		// Profit harvests may leave dust behind; no further constraints.
	case domain.EventLoss:
		if event.Amount.Cmp(preParams.TotalDebt) > 0 {
			return fmt.Errorf("%w: loss %s exceeds strategy debt %s", ErrUnsupportedEvent, event.Amount, preParams.TotalDebt)
		}
		if event.Amount.Sign() > 0 && pre.TotalAssets.Sign() == 0 {
			return fmt.Errorf("%w: loss against an empty vault", ErrUnsupportedEvent)
		}
	case domain.EventWithdraw:
		if event.SharesBurned == nil || event.SharesBurned.Sign() <= 0 {
			return fmt.Errorf("%w: withdrawal must burn shares", ErrUnsupportedEvent)
		}
		if event.SharesBurned.Cmp(pre.TotalSupply) > 0 {
			return fmt.Errorf("%w: burning %s of %s supply", ErrUnsupportedEvent, event.SharesBurned, pre.TotalSupply)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrUnsupportedEvent, event.Kind)
	}
	return nil
}

// expectNoOp: post totals equal pre totals exactly, regardless of mode.
func expectNoOp(pre *domain.VaultSnapshot, preParams *domain.StrategyParams, mode domain.AccountingMode) *domain.ExpectedOutcome {
	dr := preParams.DebtRatio
	return &domain.ExpectedOutcome{
		TotalAssets:    new(big.Int).Set(pre.TotalAssets),
		TotalSupply:    new(big.Int).Set(pre.TotalSupply),
		TotalDebt:      new(big.Int).Set(preParams.TotalDebt),
		TotalGain:      new(big.Int).Set(preParams.TotalGain),
		TotalLoss:      new(big.Int).Set(preParams.TotalLoss),
		DebtRatio:      &dr,
		PricePerShare:  new(big.Int).Set(pre.PricePerShare),
		PriceDirection: domain.PriceFlat,
		Mode:           mode,
	}
}

// expectProfit: total gain grows by the realized profit and share price does
// not fall. Debt ratio and loss are untouched by a profitable harvest.
func expectProfit(pre *domain.VaultSnapshot, preParams *domain.StrategyParams, event *domain.HarvestEvent, mode domain.AccountingMode) *domain.ExpectedOutcome {
	dr := preParams.DebtRatio
	return &domain.ExpectedOutcome{
		TotalAssets:    new(big.Int).Add(pre.TotalAssets, event.Amount),
		TotalSupply:    new(big.Int).Set(pre.TotalSupply),
		TotalGain:      new(big.Int).Add(preParams.TotalGain, event.Amount),
		TotalLoss:      new(big.Int).Set(preParams.TotalLoss),
		DebtRatio:      &dr,
		PriceDirection: domain.PriceUp,
		Mode:           mode,
	}
}

// expectLoss: total loss grows by the realized loss, debt shrinks by it, and
// the debt ratio is marked down proportionally to the fraction of vault
// assets lost. A full drain takes the ratio to zero, or to one basis point
// when residual dust keeps the destination position open.
func expectLoss(pre *domain.VaultSnapshot, preParams *domain.StrategyParams, event *domain.HarvestEvent, mode domain.AccountingMode) *domain.ExpectedOutcome {
	loss := event.Amount

	dr := preParams.DebtRatio
	if loss.Sign() > 0 {
		// markdown = min(debtRatio, loss * MaxBPS / totalAssets)
		markdown := new(big.Int).Mul(loss, big.NewInt(domain.MaxBPS))
		markdown.Div(markdown, pre.TotalAssets)
		if markdown.Cmp(new(big.Int).SetUint64(dr)) > 0 {
			dr = 0
		} else {
			dr -= markdown.Uint64()
		}
	}
	if dr == 0 && event.Extra.Sign() > 0 {
		dr = 1
	}

	// A full drain leaves the strategy with exactly the residual dust; the
	// vault writes the dust off its books without counting it as loss.
	written := new(big.Int).Add(loss, event.Extra)
	debt := new(big.Int).Sub(preParams.TotalDebt, loss)
	assets := new(big.Int).Sub(pre.TotalAssets, loss)
	if event.Extra.Sign() > 0 && written.Cmp(preParams.TotalDebt) == 0 {
		debt.SetInt64(0)
		assets.Sub(assets, event.Extra)
		if assets.Sign() < 0 {
			assets.SetInt64(0)
		}
	}

	out := &domain.ExpectedOutcome{
		TotalAssets:    assets,
		TotalSupply:    new(big.Int).Set(pre.TotalSupply),
		TotalDebt:      debt,
		TotalGain:      new(big.Int).Set(preParams.TotalGain),
		TotalLoss:      new(big.Int).Add(preParams.TotalLoss, loss),
		DebtRatio:      &dr,
		PriceDirection: domain.PriceDown,
		Mode:           mode,
	}

	// Share price hits zero only when the strategy held the whole vault and
	// everything is gone with no dust remaining.
	if preParams.DebtRatio == domain.MaxBPS &&
		loss.Cmp(pre.TotalAssets) == 0 &&
		event.Extra.Sign() == 0 {
		out.PricePerShare = big.NewInt(0)
	}

	if out.TotalDebt.Sign() == 0 {
		out.DebtOutstanding = big.NewInt(0)
	}
	return out
}

// expectWithdraw covers withdrawal-without-harvest. The withdrawing actor
// takes a pro-rata claim; only the actor's proportional share of any
// unrealized loss is recognized, never the full pre-existing debt. Shares
// burn pro-rata during loss absorption, so the share price is unaffected
// unless the last holder leaves, which resets it to the unit convention.
func expectWithdraw(pre *domain.VaultSnapshot, preParams *domain.StrategyParams, event *domain.HarvestEvent, mode domain.AccountingMode) *domain.ExpectedOutcome {
	burned := event.SharesBurned
	supply := pre.TotalSupply

	claim := new(big.Int).Mul(pre.TotalAssets, burned)
	claim.Div(claim, supply)

	lossShare := new(big.Int).Mul(preParams.UnrealizedLoss(), burned)
	lossShare.Div(lossShare, supply)

	// The claim is served from idle funds first; only the remainder is pulled
	// out of the strategy's debt.
	fromStrategy := new(big.Int).Sub(claim, pre.TotalIdle)
	if fromStrategy.Sign() < 0 {
		fromStrategy.SetInt64(0)
	}
	debt := new(big.Int).Sub(preParams.TotalDebt, fromStrategy)
	if debt.Sign() < 0 {
		debt.SetInt64(0)
	}

	dr := preParams.DebtRatio
	if fromStrategy.Sign() > 0 {
		// The remaining holders' ownership of supply, in basis points.
		remaining := new(big.Int).Sub(supply, burned)
		remaining.Mul(remaining, big.NewInt(domain.MaxBPS))
		remaining.Div(remaining, supply)
		dr = remaining.Uint64()
		if dr == 0 && event.Extra.Sign() > 0 {
			dr = 1
		}
	}

	out := &domain.ExpectedOutcome{
		TotalAssets: new(big.Int).Sub(pre.TotalAssets, claim),
		TotalSupply: new(big.Int).Sub(supply, burned),
		TotalDebt:   debt,
		TotalGain:   new(big.Int).Set(preParams.TotalGain),
		TotalLoss:   new(big.Int).Add(preParams.TotalLoss, lossShare),
		DebtRatio:   &dr,
		Mode:        mode,
	}

	if burned.Cmp(supply) == 0 {
		out.PricePerShare = domain.UnitPrice(pre.Decimals)
	} else {
		out.PricePerShare = new(big.Int).Set(pre.PricePerShare)
		out.PriceDirection = domain.PriceFlat
	}

	if out.TotalDebt.Sign() == 0 {
		out.DebtOutstanding = big.NewInt(0)
	} else {
		outstanding := new(big.Int).Mul(out.TotalAssets, big.NewInt(int64(domain.MaxBPS-dr)))
		outstanding.Div(outstanding, big.NewInt(domain.MaxBPS))
		out.DebtOutstanding = outstanding
	}
	return out
}
