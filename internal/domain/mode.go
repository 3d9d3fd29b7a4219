package domain

// ModeKind selects the accounting regime used when comparing expected and
// observed state.
type ModeKind string

// Accounting mode constants.
const (
	ModeExact            ModeKind = "EXACT"
	ModeSlippageTolerant ModeKind = "SLIPPAGE_TOLERANT"
)

// AccountingMode controls how equalities are checked: integer-exact, or
// within a relative tolerance when asset conversions are slippery.
type AccountingMode struct {
	Kind      ModeKind
	Tolerance float64 // relative tolerance, > 0 for SLIPPAGE_TOLERANT
}

// Exact returns the exact-arithmetic accounting mode: assets track debt 1:1.
func Exact() AccountingMode {
	return AccountingMode{Kind: ModeExact}
}

// SlippageTolerant returns a mode where equalities hold within the given
// relative tolerance. Tolerance validity is enforced by the oracle at call
// time.
func SlippageTolerant(tolerance float64) AccountingMode {
	return AccountingMode{Kind: ModeSlippageTolerant, Tolerance: tolerance}
}
