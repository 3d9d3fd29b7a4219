package domain

import "math/big"

// PriceDirection bounds the allowed movement of price per share across a step.
type PriceDirection string

// Price direction constants.
const (
	PriceFlat PriceDirection = "FLAT" // must equal the pre value
	PriceUp   PriceDirection = "UP"   // non-decreasing
	PriceDown PriceDirection = "DOWN" // non-increasing
)

// ExpectedOutcome holds the post-step state the oracle predicts. A nil field
// is unconstrained; set fields are checked exactly or within the mode's
// relative tolerance. PricePerShare, when set, is an exact expectation and
// takes precedence over PriceDirection.
type ExpectedOutcome struct {
	TotalAssets     *big.Int
	TotalSupply     *big.Int
	TotalDebt       *big.Int
	TotalGain       *big.Int
	TotalLoss       *big.Int
	DebtRatio       *uint64
	PricePerShare   *big.Int
	PriceDirection  PriceDirection
	DebtOutstanding *big.Int
	Mode            AccountingMode
}
