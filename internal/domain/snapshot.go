package domain

import "math/big"

// MaxBPS is the basis-point denominator used for debt ratios.
const MaxBPS = 10_000

// VaultSnapshot is an immutable record of vault-level accounting state,
// captured at a single point in time. Amounts are in the asset's base units.
type VaultSnapshot struct {
	TotalAssets   *big.Int // idle + deployed funds the vault believes it holds
	TotalSupply   *big.Int // outstanding share count
	PricePerShare *big.Int // TotalAssets/TotalSupply scaled by 10^Decimals
	TotalIdle     *big.Int // unallocated funds sitting in the vault
	Decimals      uint8    // asset decimal precision
}

// StrategyParams is an immutable record of per-strategy accounting state,
// captured alongside a VaultSnapshot.
type StrategyParams struct {
	DebtRatio       uint64   // allocation in basis points of vault assets, [0, MaxBPS]
	TotalDebt       *big.Int // funds the vault believes are deployed to the strategy
	TotalGain       *big.Int // cumulative realized profit, non-decreasing
	TotalLoss       *big.Int // cumulative realized loss, non-decreasing
	EstimatedAssets *big.Int // strategy's externally visible balance
}

// UnitPrice returns the share price convention for an empty vault: 10^decimals.
func UnitPrice(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// DebtOutstanding returns the amount the strategy holds above its allocation:
// totalAssets * (MaxBPS - debtRatio) / MaxBPS, and zero when TotalDebt is zero.
func DebtOutstanding(snap *VaultSnapshot, params *StrategyParams) *big.Int {
	if params.TotalDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(snap.TotalAssets, big.NewInt(int64(MaxBPS-params.DebtRatio)))
	return out.Div(out, big.NewInt(MaxBPS))
}

// UnrealizedLoss returns TotalDebt - EstimatedAssets clamped at zero: the
// portion of vault debt the strategy can no longer cover.
func (p *StrategyParams) UnrealizedLoss() *big.Int {
	diff := new(big.Int).Sub(p.TotalDebt, p.EstimatedAssets)
	if diff.Sign() < 0 {
		return big.NewInt(0)
	}
	return diff
}

// Clone returns a deep copy. Snapshots are pure values and are never mutated
// in place; drivers copy before handing them out.
func (s *VaultSnapshot) Clone() *VaultSnapshot {
	return &VaultSnapshot{
		TotalAssets:   new(big.Int).Set(s.TotalAssets),
		TotalSupply:   new(big.Int).Set(s.TotalSupply),
		PricePerShare: new(big.Int).Set(s.PricePerShare),
		TotalIdle:     new(big.Int).Set(s.TotalIdle),
		Decimals:      s.Decimals,
	}
}

// Clone returns a deep copy.
func (p *StrategyParams) Clone() *StrategyParams {
	return &StrategyParams{
		DebtRatio:       p.DebtRatio,
		TotalDebt:       new(big.Int).Set(p.TotalDebt),
		TotalGain:       new(big.Int).Set(p.TotalGain),
		TotalLoss:       new(big.Int).Set(p.TotalLoss),
		EstimatedAssets: new(big.Int).Set(p.EstimatedAssets),
	}
}
