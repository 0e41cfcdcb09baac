package app

import (
	"fmt"
	"strings"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/actionbuilder"
)

// parseAmountFlag splits "swap=percent:50%" into its action, mode and value.
// The value may be omitted for default and random.
func parseAmountFlag(raw string) (action, mode, value string, err error) {
	name, spec, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(spec) == "" {
		return "", "", "", clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid --amount %q (expected action=mode[:value])", raw))
	}
	mode, value, _ = strings.Cut(spec, ":")
	return actionbuilder.Normalize(name), strings.TrimSpace(mode), strings.TrimSpace(value), nil
}

// amountConfigs resolves the amount policy of every amount-bearing action.
// Flags override the config file, which overrides the action default.
func (s *runtimeState) amountConfigs(actions []string, flags []string) (map[string]amount.Config, error) {
	catalog := s.composer(nil)
	overrides := map[string][2]string{}
	for _, name := range s.settings.AmountActions() {
		spec, _ := s.settings.AmountFor(name)
		overrides[name] = [2]string{spec.Mode, spec.Value}
	}
	for _, raw := range flags {
		action, mode, value, err := parseAmountFlag(raw)
		if err != nil {
			return nil, err
		}
		def, ok := actionbuilder.Lookup(action)
		if !ok {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown action %q in --amount", action))
		}
		if !def.NeedsAmount {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("action %q does not take an amount", action))
		}
		overrides[action] = [2]string{mode, value}
	}

	out := make(map[string]amount.Config, len(actions))
	for _, action := range actions {
		def, ok := actionbuilder.Lookup(action)
		if !ok || !def.NeedsAmount {
			continue
		}
		fallback := catalog.DefaultAmount(action)
		spec, ok := overrides[action]
		if !ok {
			out[action] = amount.Default(fallback)
			continue
		}
		cfg, err := amount.Parse(spec[0], spec[1], fallback)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeUsage, "amount for "+action, err)
		}
		out[action] = cfg
	}
	return out, nil
}
