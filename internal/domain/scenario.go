package domain

import "time"

// ScenarioConfig holds execution parameters for one scenario run.
type ScenarioConfig struct {
	ScenarioID   string        // "liquidate-position" | "rekt" | "empty-strategy" | "no-profit" | "locked-funds"
	Mode         AccountingMode
	DepositBase  int64         // actor deposit in whole tokens (scaled by decimals at run time)
	ProfitBase   int64         // injected profit per harvest, whole tokens
	SleepTime    time.Duration // simulated time advanced between harvests
	ResidualDust int64         // dust units a drained destination refuses to release (0 = none)
	SecondHolder bool          // seed a second depositor so the actor owns only part of the supply
}

// Scenario ID constants.
const (
	ScenarioLiquidatePosition = "liquidate-position"
	ScenarioRekt              = "rekt"
	ScenarioEmptyStrategy     = "empty-strategy"
	ScenarioNoProfit          = "no-profit"
	ScenarioLockedFunds       = "locked-funds"
)

// Predefined scenario configurations. Tolerances mirror the slippery-asset
// setups the suite was originally run against.
var (
	ScenarioConfigLiquidatePosition = ScenarioConfig{
		ScenarioID:  ScenarioLiquidatePosition,
		Mode:        Exact(),
		DepositBase: 1_000,
		ProfitBase:  10,
		SleepTime:   24 * time.Hour,
	}

	ScenarioConfigRekt = ScenarioConfig{
		ScenarioID:  ScenarioRekt,
		Mode:        Exact(),
		DepositBase: 1_000,
		ProfitBase:  10,
		SleepTime:   5 * 24 * time.Hour,
	}

	ScenarioConfigEmptyStrategy = ScenarioConfig{
		ScenarioID:  ScenarioEmptyStrategy,
		Mode:        Exact(),
		DepositBase: 1_000,
		ProfitBase:  10,
		SleepTime:   12 * time.Hour,
	}

	ScenarioConfigNoProfit = ScenarioConfig{
		ScenarioID:  ScenarioNoProfit,
		Mode:        Exact(),
		DepositBase: 1_000,
		ProfitBase:  0,
		SleepTime:   0,
	}
)
