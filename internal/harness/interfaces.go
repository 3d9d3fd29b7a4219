// Package harness defines the driver interfaces scenarios run against and
// the simulated implementations backed by the in-process vault.
package harness

import (
	"context"
	"math/big"
	"time"

	"vault-harvest-lab/internal/domain"
)

// StateReader observes vault and strategy state without mutating it.
type StateReader interface {
	// Snapshot returns the current vault-level state.
	Snapshot(ctx context.Context) (*domain.VaultSnapshot, error)

	// StrategyParams returns the current per-strategy accounting state.
	StrategyParams(ctx context.Context) (*domain.StrategyParams, error)

	// SharesOf returns the holder's share balance.
	SharesOf(ctx context.Context, holder string) (*big.Int, error)
}

// HarvestDriver triggers harvest reports on the strategy.
type HarvestDriver interface {
	// Harvest reports the strategy position to the vault and returns the
	// realized (profit, loss, extra) amounts.
	Harvest(ctx context.Context) (profit, loss, extra *big.Int, err error)

	// SetHealthCheck toggles the loss gate on harvest reports.
	SetHealthCheck(ctx context.Context, on bool) error
}

// PerturbationDriver moves funds under or out from the strategy without
// going through vault accounting.
type PerturbationDriver interface {
	// Drain removes the strategy's entire external balance and returns the
	// amount moved.
	Drain(ctx context.Context) (*big.Int, error)

	// Inject donates funds directly to the strategy's external balance.
	Inject(ctx context.Context, amount *big.Int) error
}

// TimeDriver advances chain or simulated time.
type TimeDriver interface {
	// Sleep advances time by d, accruing whatever yield the backend models.
	Sleep(ctx context.Context, d time.Duration) error
}

// VaultDriver performs user and governance actions on the vault.
type VaultDriver interface {
	// Deposit mints shares for the holder and returns the share count.
	Deposit(ctx context.Context, holder string, amount *big.Int) (*big.Int, error)

	// Withdraw burns the holder's shares and returns the payout. maxLossBps
	// bounds the acceptable realized loss relative to the claim.
	Withdraw(ctx context.Context, holder string, shares *big.Int, maxLossBps uint64) (*big.Int, error)

	// SetDebtRatio reallocates the strategy's target allocation.
	SetDebtRatio(ctx context.Context, bps uint64) error
}

// Backend bundles every driver a scenario needs against one target.
type Backend interface {
	StateReader
	HarvestDriver
	PerturbationDriver
	TimeDriver
	VaultDriver

	// Name identifies the backend in run records and reports.
	Name() string

	// Close releases backend resources.
	Close() error
}
