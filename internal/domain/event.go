package domain

import "math/big"

// EventKind tags the externally observed outcome of a scenario step.
type EventKind string

// Event kind constants.
const (
	EventNoOp     EventKind = "NO_OP"
	EventProfit   EventKind = "PROFIT"
	EventLoss     EventKind = "LOSS"
	EventWithdraw EventKind = "WITHDRAW"
)

// HarvestEvent describes one externally observed harvest or withdrawal.
// Amount is the realized profit or loss for PROFIT/LOSS events and unused
// otherwise. Extra is residual dust a destination protocol refuses to
// release after a full drain; debt/asset equalities add it rather than
// assume a literal zero. SharesBurned is set for WITHDRAW events only.
type HarvestEvent struct {
	Kind         EventKind
	Amount       *big.Int
	Extra        *big.Int
	SharesBurned *big.Int
}

// NoOpEvent returns a harvest event with no profit, loss, or dust.
func NoOpEvent() *HarvestEvent {
	return &HarvestEvent{Kind: EventNoOp, Amount: big.NewInt(0), Extra: big.NewInt(0)}
}

// ProfitEvent returns a harvest event realizing the given profit.
func ProfitEvent(amount *big.Int) *HarvestEvent {
	return &HarvestEvent{Kind: EventProfit, Amount: new(big.Int).Set(amount), Extra: big.NewInt(0)}
}

// LossEvent returns a harvest event realizing the given loss, with extra
// residual dust left behind by the destination protocol.
func LossEvent(amount, extra *big.Int) *HarvestEvent {
	return &HarvestEvent{Kind: EventLoss, Amount: new(big.Int).Set(amount), Extra: new(big.Int).Set(extra)}
}

// WithdrawEvent returns a withdrawal-without-harvest event burning the given
// number of vault shares.
func WithdrawEvent(sharesBurned, extra *big.Int) *HarvestEvent {
	return &HarvestEvent{
		Kind:         EventWithdraw,
		Amount:       big.NewInt(0),
		Extra:        new(big.Int).Set(extra),
		SharesBurned: new(big.Int).Set(sharesBurned),
	}
}
