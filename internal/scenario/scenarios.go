package scenario

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/harness"
)

// Holder identities used by every script. The actor drives the scenario; the
// counterparty only holds shares so the actor owns part of the supply.
const (
	actorHolder        = "actor"
	counterpartyHolder = "counterparty"
)

// checkLevel selects what is verified after a step. Structural checks hold
// across any step; full checks additionally compare against the computed
// expected outcome for the step's event.
type checkLevel int

const (
	checkStructural checkLevel = iota
	checkFull
)

// step is one scripted action. run returns the externally observed event, or
// nil for actions the expected-outcome computation has no model for.
type step struct {
	label string
	check checkLevel
	run   func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error)
}

// scriptState carries values produced by earlier steps into later ones.
type scriptState struct {
	actorShares *big.Int
}

// buildScript assembles the step list for a scenario. Deposit sizes are given
// in whole tokens and scaled here; residual dust is already in base units.
func buildScript(cfg domain.ScenarioConfig, decimals uint8) ([]step, error) {
	deposit := new(big.Int).Mul(big.NewInt(cfg.DepositBase), domain.UnitPrice(decimals))
	profit := new(big.Int).Mul(big.NewInt(cfg.ProfitBase), domain.UnitPrice(decimals))
	dust := big.NewInt(cfg.ResidualDust)
	st := &scriptState{}

	switch cfg.ScenarioID {
	case domain.ScenarioLiquidatePosition:
		return liquidatePositionScript(cfg, deposit, profit, dust, st), nil
	case domain.ScenarioRekt:
		return rektScript(cfg, deposit, dust, st), nil
	case domain.ScenarioEmptyStrategy:
		return emptyStrategyScript(cfg, deposit, profit, st), nil
	case domain.ScenarioNoProfit:
		return noProfitScript(deposit, st), nil
	case domain.ScenarioLockedFunds:
		// Neither backend models destination lockup windows, so the script
		// cannot force funds into a locked state.
		return nil, fmt.Errorf("%w: %s", ErrScenarioUnsupported, cfg.ScenarioID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrScenarioUnknown, cfg.ScenarioID)
	}
}

// liquidatePositionScript deposits, accrues and harvests profit, then drains
// the destination and liquidates the actor's whole position before the loss
// is ever reported. The withdrawal recognizes the actor's share of the
// unrealized loss.
func liquidatePositionScript(cfg domain.ScenarioConfig, deposit, profit, dust *big.Int, st *scriptState) []step {
	var steps []step
	if cfg.SecondHolder {
		steps = append(steps, depositStep(counterpartyHolder, deposit, nil))
	}
	steps = append(steps,
		depositStep(actorHolder, deposit, st),
		harvestStep("harvest-extend", checkStructural),
		sleepStep(cfg.SleepTime),
	)
	if profit.Sign() > 0 {
		steps = append(steps, injectStep(profit))
	}
	steps = append(steps,
		harvestStep("harvest-profit", checkFull),
		drainStep(),
	)
	if dust.Sign() > 0 {
		// The dusty destination refuses to act on an empty position; top it
		// back up to exactly the dust it would have kept.
		steps = append(steps, injectStep(dust))
	}
	steps = append(steps, withdrawAllStep(st, dust, domain.MaxBPS))
	return steps
}

// rektScript drains the strategy's external balance, zeroes the allocation,
// realizes the loss with the health check disabled, and withdraws what
// little remains after time passes.
func rektScript(cfg domain.ScenarioConfig, deposit, dust *big.Int, st *scriptState) []step {
	steps := []step{
		depositStep(actorHolder, deposit, st),
		harvestStep("harvest-extend", checkStructural),
		drainStep(),
		setDebtRatioStep(0),
		setHealthCheckStep(false),
	}
	if dust.Sign() > 0 {
		steps = append(steps, injectStep(dust))
	}
	steps = append(steps,
		harvestStep("harvest-loss", checkFull),
		sleepStep(cfg.SleepTime),
		withdrawAllStep(st, dust, domain.MaxBPS),
	)
	return steps
}

// emptyStrategyScript empties the strategy after yield accrues, reports the
// total loss driving the share price to zero, then recovers it with a
// donated profit.
func emptyStrategyScript(cfg domain.ScenarioConfig, deposit, profit *big.Int, st *scriptState) []step {
	return []step{
		depositStep(actorHolder, deposit, st),
		harvestStep("harvest-extend", checkStructural),
		sleepStep(cfg.SleepTime),
		drainStep(),
		setHealthCheckStep(false),
		harvestStep("harvest-loss", checkFull),
		injectStep(profit),
		harvestStep("harvest-recovery", checkFull),
	}
}

// noProfitScript round-trips a deposit through a strategy that never earns,
// starting from a harvest on a completely empty vault.
func noProfitScript(deposit *big.Int, st *scriptState) []step {
	return []step{
		harvestStep("harvest-empty", checkFull),
		depositStep(actorHolder, deposit, st),
		harvestStep("harvest-extend", checkStructural),
		harvestStep("harvest-no-profit", checkFull),
		withdrawAllStep(st, big.NewInt(0), 0),
	}
}

func depositStep(holder string, amount *big.Int, st *scriptState) step {
	return step{
		label: "deposit",
		check: checkStructural,
		run: func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error) {
			shares, err := b.Deposit(ctx, holder, amount)
			if err != nil {
				return nil, err
			}
			if st != nil {
				st.actorShares = shares
			}
			return nil, nil
		},
	}
}

func harvestStep(label string, check checkLevel) step {
	return step{
		label: label,
		check: check,
		run: func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error) {
			profit, loss, extra, err := b.Harvest(ctx)
			if err != nil {
				return nil, err
			}
			return classifyHarvest(profit, loss, extra), nil
		},
	}
}

// classifyHarvest maps a harvest result triple onto the event taxonomy.
func classifyHarvest(profit, loss, extra *big.Int) *domain.HarvestEvent {
	switch {
	case profit.Sign() > 0:
		return domain.ProfitEvent(profit)
	case loss.Sign() > 0 || extra.Sign() > 0:
		return domain.LossEvent(loss, extra)
	default:
		return domain.NoOpEvent()
	}
}

func sleepStep(d time.Duration) step {
	return step{
		label: "sleep",
		check: checkStructural,
		run: func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error) {
			return nil, b.Sleep(ctx, d)
		},
	}
}

func drainStep() step {
	return step{
		label: "drain",
		check: checkStructural,
		run: func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error) {
			_, err := b.Drain(ctx)
			return nil, err
		},
	}
}

func injectStep(amount *big.Int) step {
	return step{
		label: "inject",
		check: checkStructural,
		run: func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error) {
			return nil, b.Inject(ctx, amount)
		},
	}
}

func setDebtRatioStep(bps uint64) step {
	return step{
		label: "set-debt-ratio",
		check: checkStructural,
		run: func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error) {
			return nil, b.SetDebtRatio(ctx, bps)
		},
	}
}

func setHealthCheckStep(on bool) step {
	return step{
		label: "set-health-check",
		check: checkStructural,
		run: func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error) {
			return nil, b.SetHealthCheck(ctx, on)
		},
	}
}

// withdrawAllStep burns every share the actor holds. dust is forwarded into
// the expected outcome so a position the destination keeps open by one unit
// is modeled rather than flagged.
func withdrawAllStep(st *scriptState, dust *big.Int, maxLossBps uint64) step {
	return step{
		label: "withdraw",
		check: checkFull,
		run: func(ctx context.Context, b harness.Backend) (*domain.HarvestEvent, error) {
			if st.actorShares == nil || st.actorShares.Sign() == 0 {
				return nil, fmt.Errorf("withdraw step before any deposit")
			}
			if _, err := b.Withdraw(ctx, actorHolder, st.actorShares, maxLossBps); err != nil {
				return nil, err
			}
			return domain.WithdrawEvent(st.actorShares, dust), nil
		},
	}
}
