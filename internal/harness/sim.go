package harness

import (
	"context"
	"math/big"
	"time"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/vaultsim"
)

// SimBackend drives the in-process simulated vault. Every call honors
// context cancellation before touching the simulator so scenario timeouts
// behave the same as against a remote backend.
type SimBackend struct {
	vault *vaultsim.Vault
}

var _ Backend = (*SimBackend)(nil)

// NewSimBackend wraps a simulated vault in the driver interfaces.
func NewSimBackend(v *vaultsim.Vault) *SimBackend {
	return &SimBackend{vault: v}
}

func (b *SimBackend) Name() string { return "sim" }

func (b *SimBackend) Close() error { return nil }

func (b *SimBackend) Snapshot(ctx context.Context) (*domain.VaultSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.vault.Snapshot(), nil
}

func (b *SimBackend) StrategyParams(ctx context.Context) (*domain.StrategyParams, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.vault.StrategyParams(), nil
}

func (b *SimBackend) SharesOf(ctx context.Context, holder string) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.vault.SharesOf(holder), nil
}

func (b *SimBackend) Harvest(ctx context.Context) (profit, loss, extra *big.Int, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	return b.vault.Harvest()
}

func (b *SimBackend) SetHealthCheck(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.vault.SetHealthCheck(on)
	return nil
}

func (b *SimBackend) Drain(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.vault.Drain(), nil
}

func (b *SimBackend) Inject(ctx context.Context, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.vault.Inject(amount)
}

func (b *SimBackend) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.vault.Sleep(d)
	return nil
}

func (b *SimBackend) Deposit(ctx context.Context, holder string, amount *big.Int) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.vault.Deposit(holder, amount)
}

func (b *SimBackend) Withdraw(ctx context.Context, holder string, shares *big.Int, maxLossBps uint64) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.vault.Withdraw(holder, shares, maxLossBps)
}

func (b *SimBackend) SetDebtRatio(ctx context.Context, bps uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.vault.SetDebtRatio(bps)
}
