package oracle

import "errors"

// Oracle errors. All are caller programming errors or fatal verdicts; the
// oracle is deterministic, so nothing here is retryable.
var (
	// ErrUnsupportedEvent is returned for an event shape the oracle's rules
	// do not cover, e.g. a loss larger than the strategy's debt.
	ErrUnsupportedEvent = errors.New("unsupported harvest event shape")

	// ErrToleranceMisuse is returned when slippage-tolerant mode is invoked
	// with a non-positive tolerance.
	ErrToleranceMisuse = errors.New("slippage tolerance must be positive")

	// ErrInvariantViolated wraps the first violation of a failed check.
	ErrInvariantViolated = errors.New("invariant violated")
)
