package oracle

import (
	"fmt"
	"math/big"

	"vault-harvest-lab/internal/domain"
)

// Violation is a single computed/observed mismatch. Expected may be a value
// or a bound description; both sides are kept for reporting.
type Violation struct {
	Field    string
	Expected interface{}
	Actual   interface{}
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: expected %v, got %v", v.Field, v.Expected, v.Actual)
}

// AsError converts a non-empty violation list into an ErrInvariantViolated
// carrying the first mismatch. Returns nil for an empty list.
func AsError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	v := violations[0]
	return fmt.Errorf("%w: %s (%d total)", ErrInvariantViolated, v.String(), len(violations))
}

// CheckInvariants compares the observed post-step state against the expected
// outcome and the structural invariants that must hold across any snapshot
// pair. Violations are always surfaced, never silently tolerated.
func CheckInvariants(pre, post *domain.StateView, expected *domain.ExpectedOutcome) []Violation {
	var violations []Violation

	// Monotonic counters hold across every step, whatever the event was.
	if post.Strategy.TotalGain.Cmp(pre.Strategy.TotalGain) < 0 {
		violations = append(violations, Violation{
			Field:    "TotalGain",
			Expected: fmt.Sprintf(">= %s", pre.Strategy.TotalGain),
			Actual:   post.Strategy.TotalGain.String(),
		})
	}
	if post.Strategy.TotalLoss.Cmp(pre.Strategy.TotalLoss) < 0 {
		violations = append(violations, Violation{
			Field:    "TotalLoss",
			Expected: fmt.Sprintf(">= %s", pre.Strategy.TotalLoss),
			Actual:   post.Strategy.TotalLoss.String(),
		})
	}

	if post.Strategy.DebtRatio > domain.MaxBPS {
		violations = append(violations, Violation{
			Field:    "DebtRatio",
			Expected: fmt.Sprintf("<= %d", domain.MaxBPS),
			Actual:   post.Strategy.DebtRatio,
		})
	}

	// Zero debt implies zero debt outstanding.
	if post.Strategy.TotalDebt.Sign() == 0 {
		if out := domain.DebtOutstanding(post.Vault, post.Strategy); out.Sign() != 0 {
			violations = append(violations, Violation{
				Field:    "DebtOutstanding",
				Expected: "0",
				Actual:   out.String(),
			})
		}
	}

	// Empty vault converges to the unit share price convention.
	if post.Vault.TotalSupply.Sign() == 0 {
		unit := domain.UnitPrice(post.Vault.Decimals)
		if post.Vault.PricePerShare.Cmp(unit) != 0 {
			violations = append(violations, Violation{
				Field:    "PricePerShare",
				Expected: unit.String(),
				Actual:   post.Vault.PricePerShare.String(),
			})
		}
	}

	mode := expected.Mode
	violations = appendAmount(violations, "TotalAssets", expected.TotalAssets, post.Vault.TotalAssets, mode)
	violations = appendAmount(violations, "TotalSupply", expected.TotalSupply, post.Vault.TotalSupply, mode)
	violations = appendAmount(violations, "TotalDebt", expected.TotalDebt, post.Strategy.TotalDebt, mode)
	violations = appendAmount(violations, "TotalGain", expected.TotalGain, post.Strategy.TotalGain, mode)
	violations = appendAmount(violations, "TotalLoss", expected.TotalLoss, post.Strategy.TotalLoss, mode)
	violations = appendAmount(violations, "DebtOutstanding", expected.DebtOutstanding, domain.DebtOutstanding(post.Vault, post.Strategy), mode)

	if expected.DebtRatio != nil {
		want := new(big.Int).SetUint64(*expected.DebtRatio)
		got := new(big.Int).SetUint64(post.Strategy.DebtRatio)
		if !amountEquals(want, got, mode) {
			violations = append(violations, Violation{
				Field:    "DebtRatio",
				Expected: *expected.DebtRatio,
				Actual:   post.Strategy.DebtRatio,
			})
		}
	}

	violations = append(violations, checkPrice(pre, post, expected)...)

	return violations
}

// checkPrice verifies the share price against an exact expectation or a
// direction bound relative to the pre-step value.
func checkPrice(pre, post *domain.StateView, expected *domain.ExpectedOutcome) []Violation {
	if expected.PricePerShare != nil {
		if !amountEquals(expected.PricePerShare, post.Vault.PricePerShare, expected.Mode) {
			return []Violation{{
				Field:    "PricePerShare",
				Expected: expected.PricePerShare.String(),
				Actual:   post.Vault.PricePerShare.String(),
			}}
		}
		return nil
	}

	cmp := post.Vault.PricePerShare.Cmp(pre.Vault.PricePerShare)
	switch expected.PriceDirection {
	case domain.PriceFlat:
		if cmp != 0 {
			return []Violation{{
				Field:    "PricePerShare",
				Expected: pre.Vault.PricePerShare.String(),
				Actual:   post.Vault.PricePerShare.String(),
			}}
		}
	case domain.PriceUp:
		if cmp < 0 {
			return []Violation{{
				Field:    "PricePerShare",
				Expected: fmt.Sprintf(">= %s", pre.Vault.PricePerShare),
				Actual:   post.Vault.PricePerShare.String(),
			}}
		}
	case domain.PriceDown:
		if cmp > 0 {
			return []Violation{{
				Field:    "PricePerShare",
				Expected: fmt.Sprintf("<= %s", pre.Vault.PricePerShare),
				Actual:   post.Vault.PricePerShare.String(),
			}}
		}
	}
	return nil
}

func appendAmount(violations []Violation, field string, expected, actual *big.Int, mode domain.AccountingMode) []Violation {
	if expected == nil {
		return violations
	}
	if !amountEquals(expected, actual, mode) {
		violations = append(violations, Violation{
			Field:    field,
			Expected: expected.String(),
			Actual:   actual.String(),
		})
	}
	return violations
}

// amountEquals compares expected and actual under the accounting mode:
// integer-exact for EXACT, relative tolerance for SLIPPAGE_TOLERANT. A zero
// expectation has no relative scale and is always compared exactly.
func amountEquals(expected, actual *big.Int, mode domain.AccountingMode) bool {
	if mode.Kind == domain.ModeExact || expected.Sign() == 0 {
		return expected.Cmp(actual) == 0
	}
	return relWithin(expected, actual, mode.Tolerance)
}

// relWithin reports whether |actual - expected| / |expected| <= tolerance.
func relWithin(expected, actual *big.Int, tolerance float64) bool {
	diff := new(big.Int).Sub(actual, expected)
	diff.Abs(diff)
	if diff.Sign() == 0 {
		return true
	}
	base := new(big.Int).Abs(expected)
	ratio := new(big.Float).Quo(new(big.Float).SetInt(diff), new(big.Float).SetInt(base))
	r, _ := ratio.Float64()
	return r <= tolerance
}
