package amount

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

// BalanceReader reads the live balance of one coin type for an owner.
type BalanceReader interface {
	Balance(ctx context.Context, owner, coinType string) (*big.Int, error)
}

type Resolver struct {
	balances   BalanceReader
	gasReserve *big.Int
}

func NewResolver(balances BalanceReader) *Resolver {
	return &Resolver{balances: balances, gasReserve: big.NewInt(registry.NativeGasReserve)}
}

// Resolve computes the base-unit amount to spend for a single asset.
// A zero result means the action should be skipped.
func (r *Resolver) Resolve(ctx context.Context, owner string, asset registry.Asset, cfg Config) (*big.Int, error) {
	if cfg.mode == ModeDefault {
		return cfg.Fallback(), nil
	}
	balance, err := r.balance(ctx, owner, asset)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return new(big.Int), nil
	}
	switch cfg.mode {
	case ModeCustom:
		return minInt(scale(cfg.value, asset.Decimals), balance), nil
	case ModePercent:
		amount := percentOf(balance, cfg.value)
		if asset.IsNative() {
			ceiling := new(big.Int).Sub(balance, r.gasReserve)
			if amount.Cmp(ceiling) > 0 {
				amount = ceiling
			}
			if amount.Sign() < 0 {
				amount = new(big.Int)
			}
		}
		return amount, nil
	default:
		return nil, clierr.New(clierr.CodeInternal, fmt.Sprintf("unhandled amount mode %s", cfg.mode))
	}
}

// ResolvePaired computes one amount spent equally from two assets. Every mode
// is clamped to the smaller of the two balances.
func (r *Resolver) ResolvePaired(ctx context.Context, owner string, a, b registry.Asset, cfg Config) (*big.Int, error) {
	balA, err := r.balance(ctx, owner, a)
	if err != nil {
		return nil, err
	}
	balB, err := r.balance(ctx, owner, b)
	if err != nil {
		return nil, err
	}
	limit := minInt(balA, balB)
	if limit.Sign() == 0 {
		return new(big.Int), nil
	}
	switch cfg.mode {
	case ModeDefault:
		return minInt(cfg.Fallback(), limit), nil
	case ModeCustom:
		decimals := a.Decimals
		if b.Decimals < decimals {
			decimals = b.Decimals
		}
		return minInt(scale(cfg.value, decimals), limit), nil
	case ModePercent:
		return percentOf(limit, cfg.value), nil
	default:
		return nil, clierr.New(clierr.CodeInternal, fmt.Sprintf("unhandled amount mode %s", cfg.mode))
	}
}

// ResolveFixed computes an amount that does not depend on a balance. Percent
// has no meaning here and falls back to the default with a warning.
func ResolveFixed(asset registry.Asset, cfg Config) (*big.Int, string) {
	switch cfg.mode {
	case ModeCustom:
		return scale(cfg.value, asset.Decimals), ""
	case ModePercent:
		return cfg.Fallback(), fmt.Sprintf("percent amounts are not supported for %s here; using default %s", asset.Symbol, cfg.Fallback())
	default:
		return cfg.Fallback(), ""
	}
}

func (r *Resolver) balance(ctx context.Context, owner string, asset registry.Asset) (*big.Int, error) {
	balance, err := r.balances.Balance(ctx, owner, asset.CoinType)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeExternal, fmt.Sprintf("read %s balance", asset.Symbol), err)
	}
	if balance == nil {
		return new(big.Int), nil
	}
	return balance, nil
}

func scale(value decimal.Decimal, decimals int32) *big.Int {
	return value.Shift(decimals).Floor().BigInt()
}

// percentOf multiplies before dividing so no precision is lost to rounding.
func percentOf(balance *big.Int, fraction decimal.Decimal) *big.Int {
	pct := fraction.Mul(hundred).Floor().BigInt()
	out := new(big.Int).Mul(balance, pct)
	return out.Quo(out, big.NewInt(100))
}

func minInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
