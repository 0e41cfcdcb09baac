// Package amount turns a per-action amount policy into an exact base-unit
// quantity using live balances.
package amount

import (
	"fmt"
	"math/big"
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

type Mode int

const (
	ModeDefault Mode = iota
	ModeCustom
	ModePercent
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeCustom:
		return "custom"
	case ModePercent:
		return "percent"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	hundred    = decimal.NewFromInt(100)
	minRandom  = decimal.RequireFromString("0.20")
	randomSpan = decimal.RequireFromString("0.80")
)

// Config is an immutable amount policy. Default carries base units, Custom
// an unscaled token quantity and Percent a fraction in (0, 1]. Every config
// also remembers the action's default amount for modes that cannot honor it.
type Config struct {
	mode     Mode
	value    decimal.Decimal
	fallback *big.Int
}

// Default uses base verbatim.
func Default(base *big.Int) Config {
	return Config{mode: ModeDefault, fallback: copyInt(base)}
}

// Custom spends a human token quantity, scaled by the asset's decimals.
func Custom(value decimal.Decimal, fallback *big.Int) (Config, error) {
	if !value.IsPositive() {
		return Config{}, clierr.New(clierr.CodeUsage, "custom amount must be a positive number")
	}
	return Config{mode: ModeCustom, value: value, fallback: copyInt(fallback)}, nil
}

// Percent spends a fraction of the live balance.
func Percent(fraction decimal.Decimal, fallback *big.Int) (Config, error) {
	if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return Config{}, clierr.New(clierr.CodeUsage, "percent must be within (0, 1]")
	}
	return Config{mode: ModePercent, value: fraction, fallback: copyInt(fallback)}, nil
}

// Random picks a percentage in [20%, 100%).
func Random(rng *rand.Rand, fallback *big.Int) Config {
	var f float64
	if rng != nil {
		f = rng.Float64()
	} else {
		f = rand.Float64()
	}
	fraction := minRandom.Add(randomSpan.Mul(decimal.NewFromFloat(f))).Truncate(4)
	return Config{mode: ModePercent, value: fraction, fallback: copyInt(fallback)}
}

// Parse builds a config from user-facing strings. Mode is one of default,
// custom, percent or random. Percent accepts "50%" or a fraction like "0.5".
func Parse(mode, value string, fallback *big.Int) (Config, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "default":
		return Default(fallback), nil
	case "custom":
		v, err := decimal.NewFromString(value)
		if err != nil {
			return Config{}, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid custom amount %q", value), err)
		}
		return Custom(v, fallback)
	case "percent", "pct":
		scaled := strings.HasSuffix(value, "%")
		v, err := decimal.NewFromString(strings.TrimSuffix(value, "%"))
		if err != nil {
			return Config{}, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid percent %q", value), err)
		}
		if scaled {
			v = v.Div(hundred)
		}
		return Percent(v, fallback)
	case "random":
		return Random(nil, fallback), nil
	default:
		return Config{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown amount mode %q (expected default|custom|percent|random)", mode))
	}
}

func (c Config) Mode() Mode { return c.mode }

func (c Config) Value() decimal.Decimal { return c.value }

// Fallback returns a copy of the action's default amount.
func (c Config) Fallback() *big.Int { return copyInt(c.fallback) }

func (c Config) String() string {
	switch c.mode {
	case ModeCustom:
		return "custom:" + c.value.String()
	case ModePercent:
		return "percent:" + c.value.Mul(hundred).String() + "%"
	default:
		if c.fallback == nil {
			return "default"
		}
		return "default:" + c.fallback.String()
	}
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
