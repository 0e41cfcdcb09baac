package amount

import (
	"math/big"
	"math/rand"

	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

// Preset is one of the quick choices offered by the interactive prompt.
type Preset string

const (
	PresetDefault Preset = "default"
	PresetCustom  Preset = "custom"
	Preset100     Preset = "100%"
	Preset50      Preset = "50%"
	Preset20      Preset = "20%"
	PresetRandom  Preset = "random"
	PresetCancel  Preset = "cancel"
)

// Presets lists the prompt choices in display order.
func Presets() []Preset {
	return []Preset{PresetDefault, PresetCustom, Preset100, Preset50, Preset20, PresetRandom, PresetCancel}
}

// FromPreset converts a prompt choice into a config. ok is false when the
// user canceled, in which case the action must not run.
func FromPreset(p Preset, custom string, fallback *big.Int, rng *rand.Rand) (cfg Config, ok bool, err error) {
	switch p {
	case PresetDefault:
		return Default(fallback), true, nil
	case PresetCustom:
		cfg, err = Parse("custom", custom, fallback)
		return cfg, err == nil, err
	case Preset100:
		cfg, err = Percent(decimal.NewFromInt(1), fallback)
		return cfg, err == nil, err
	case Preset50:
		cfg, err = Percent(decimal.RequireFromString("0.5"), fallback)
		return cfg, err == nil, err
	case Preset20:
		cfg, err = Percent(decimal.RequireFromString("0.2"), fallback)
		return cfg, err == nil, err
	case PresetRandom:
		return Random(rng, fallback), true, nil
	case PresetCancel:
		return Config{}, false, nil
	default:
		return Config{}, false, clierr.New(clierr.CodeUsage, "unknown amount preset "+string(p))
	}
}
