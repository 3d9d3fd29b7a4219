package chainrpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/harness"
)

// Backend drives a vault lab node over JSON-RPC, translating between wire
// decimal strings and domain amounts.
type Backend struct {
	client *HTTPClient
}

var _ harness.Backend = (*Backend)(nil)

// NewBackend wraps an RPC client in the scenario driver interfaces.
func NewBackend(client *HTTPClient) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Name() string { return "node" }

func (b *Backend) Close() error { return nil }

func (b *Backend) Snapshot(ctx context.Context) (*domain.VaultSnapshot, error) {
	raw, err := b.client.VaultSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	snap := &domain.VaultSnapshot{Decimals: raw.Decimals}
	for _, f := range []struct {
		dst  **big.Int
		name string
		val  string
	}{
		{&snap.TotalAssets, "totalAssets", raw.TotalAssets},
		{&snap.TotalSupply, "totalSupply", raw.TotalSupply},
		{&snap.PricePerShare, "pricePerShare", raw.PricePerShare},
		{&snap.TotalIdle, "totalIdle", raw.TotalIdle},
	} {
		v, err := parseAmount(f.name, f.val)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return snap, nil
}

func (b *Backend) StrategyParams(ctx context.Context) (*domain.StrategyParams, error) {
	raw, err := b.client.StrategyParams(ctx)
	if err != nil {
		return nil, err
	}

	params := &domain.StrategyParams{DebtRatio: raw.DebtRatio}
	for _, f := range []struct {
		dst  **big.Int
		name string
		val  string
	}{
		{&params.TotalDebt, "totalDebt", raw.TotalDebt},
		{&params.TotalGain, "totalGain", raw.TotalGain},
		{&params.TotalLoss, "totalLoss", raw.TotalLoss},
		{&params.EstimatedAssets, "estimatedAssets", raw.EstimatedAssets},
	} {
		v, err := parseAmount(f.name, f.val)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return params, nil
}

func (b *Backend) SharesOf(ctx context.Context, holder string) (*big.Int, error) {
	raw, err := b.client.SharesOf(ctx, holder)
	if err != nil {
		return nil, err
	}
	return parseAmount("shares", raw)
}

func (b *Backend) Harvest(ctx context.Context) (profit, loss, extra *big.Int, err error) {
	raw, err := b.client.Harvest(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if profit, err = parseAmount("profit", raw.Profit); err != nil {
		return nil, nil, nil, err
	}
	if loss, err = parseAmount("loss", raw.Loss); err != nil {
		return nil, nil, nil, err
	}
	if extra, err = parseAmount("extra", raw.Extra); err != nil {
		return nil, nil, nil, err
	}
	return profit, loss, extra, nil
}

func (b *Backend) SetHealthCheck(ctx context.Context, on bool) error {
	return b.client.SetHealthCheck(ctx, on)
}

func (b *Backend) Drain(ctx context.Context) (*big.Int, error) {
	raw, err := b.client.Drain(ctx)
	if err != nil {
		return nil, err
	}
	return parseAmount("moved", raw)
}

func (b *Backend) Inject(ctx context.Context, amount *big.Int) error {
	return b.client.Inject(ctx, amount.String())
}

func (b *Backend) Sleep(ctx context.Context, d time.Duration) error {
	return b.client.Sleep(ctx, int64(d/time.Second))
}

func (b *Backend) Deposit(ctx context.Context, holder string, amount *big.Int) (*big.Int, error) {
	raw, err := b.client.Deposit(ctx, holder, amount.String())
	if err != nil {
		return nil, err
	}
	return parseAmount("shares", raw)
}

func (b *Backend) Withdraw(ctx context.Context, holder string, shares *big.Int, maxLossBps uint64) (*big.Int, error) {
	raw, err := b.client.Withdraw(ctx, holder, shares.String(), maxLossBps)
	if err != nil {
		return nil, err
	}
	return parseAmount("payout", raw)
}

func (b *Backend) SetDebtRatio(ctx context.Context, bps uint64) error {
	return b.client.SetDebtRatio(ctx, bps)
}

// parseAmount decodes a non-negative decimal string from the wire.
func parseAmount(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse %s: not a decimal amount: %q", field, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("parse %s: negative amount %s", field, v)
	}
	return v, nil
}
