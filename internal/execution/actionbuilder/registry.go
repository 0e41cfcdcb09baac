// Package actionbuilder maps action names to their metadata and dispatches
// composition to the planner.
package actionbuilder

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution"
	"github.com/ggonzalez94/creek-cli/internal/execution/planner"
	"github.com/ggonzalez94/creek-cli/internal/id"
	"github.com/ggonzalez94/creek-cli/internal/model"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

// Definition describes one action.
type Definition struct {
	Name        string
	Title       string
	Asset       string
	NeedsAmount bool
	OnChain     bool
}

var definitions = []Definition{
	{Name: registry.ActionConnect, Title: "Connect API", OnChain: false},
	{Name: registry.ActionFaucet, Title: "Faucet (XAUM & USDC)", Asset: "XAUM+USDC", OnChain: true},
	{Name: registry.ActionSwap, Title: "Swap USDC->GUSD", Asset: "USDC", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionStake, Title: "Stake XAUM", Asset: "XAUM", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionRedeem, Title: "Redeem XAUM (GR+GY)", Asset: "GR", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionDepositSUI, Title: "Deposit SUI", Asset: "SUI", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionDepositUSDC, Title: "Deposit USDC", Asset: "USDC", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionDepositGR, Title: "Deposit GR", Asset: "GR", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionBorrow, Title: "Borrow GUSD", Asset: "GUSD", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionRepay, Title: "Repay GUSD", Asset: "GUSD", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionWithdrawSUI, Title: "Withdraw SUI", Asset: "SUI", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionWithdrawUSDC, Title: "Withdraw USDC", Asset: "USDC", NeedsAmount: true, OnChain: true},
	{Name: registry.ActionWithdrawGR, Title: "Withdraw GR", Asset: "GR", NeedsAmount: true, OnChain: true},
}

// runAllOrder is the full-run sequence. Redeem runs last.
var runAllOrder = []string{
	registry.ActionConnect,
	registry.ActionFaucet,
	registry.ActionSwap,
	registry.ActionStake,
	registry.ActionDepositSUI,
	registry.ActionDepositUSDC,
	registry.ActionDepositGR,
	registry.ActionBorrow,
	registry.ActionRepay,
	registry.ActionWithdrawSUI,
	registry.ActionWithdrawUSDC,
	registry.ActionWithdrawGR,
	registry.ActionRedeem,
}

// Definitions returns every action in menu order.
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// RunAllOrder returns every action in the order a full run executes them.
func RunAllOrder() []string {
	return append([]string(nil), runAllOrder...)
}

func Lookup(name string) (Definition, bool) {
	name = Normalize(name)
	for _, def := range definitions {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Normalize lowercases a name and accepts underscores for dashes.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

// Registry composes plans for named actions against one protocol deployment.
type Registry struct {
	protocol registry.Protocol
	planner  *planner.Planner
}

func New(p *planner.Planner) *Registry {
	return &Registry{protocol: p.Protocol(), planner: p}
}

// DefaultConfig is the Default amount policy for an action.
func (r *Registry) DefaultConfig(name string) amount.Config {
	base, ok := r.protocol.DefaultAmount(Normalize(name))
	if !ok {
		base = new(big.Int)
	}
	return amount.Default(base)
}

// DefaultAmount returns the action's default base units, or nil when the
// action takes no amount.
func (r *Registry) DefaultAmount(name string) *big.Int {
	base, ok := r.protocol.DefaultAmount(Normalize(name))
	if !ok {
		return nil
	}
	return base
}

// Infos describes every action for listing.
func (r *Registry) Infos() []model.ActionInfo {
	out := make([]model.ActionInfo, 0, len(definitions))
	for _, def := range definitions {
		info := model.ActionInfo{
			Name:        def.Name,
			Title:       def.Title,
			Asset:       def.Asset,
			NeedsAmount: def.NeedsAmount,
			OnChain:     def.OnChain,
		}
		if base := r.DefaultAmount(def.Name); base != nil {
			info.DefaultUnits = base.String()
			if asset, ok := r.protocol.AssetBySymbol(def.Asset); ok {
				info.DefaultAmount = id.FormatUnits(base, asset.Decimals) + " " + asset.Symbol
			}
		}
		out = append(out, info)
	}
	return out
}

// Compose builds the plan for one wallet. Connect is off-chain and has no plan.
func (r *Registry) Compose(ctx context.Context, owner, action string, cfg amount.Config) (execution.Plan, error) {
	p := r.planner
	switch Normalize(action) {
	case registry.ActionFaucet:
		return p.Faucet(ctx, owner)
	case registry.ActionSwap:
		return p.Swap(ctx, owner, cfg)
	case registry.ActionStake:
		return p.Stake(ctx, owner, cfg)
	case registry.ActionRedeem:
		return p.Redeem(ctx, owner, cfg)
	case registry.ActionDepositSUI:
		return p.Deposit(ctx, owner, r.protocol.SUI, cfg)
	case registry.ActionDepositUSDC:
		return p.Deposit(ctx, owner, r.protocol.USDC, cfg)
	case registry.ActionDepositGR:
		return p.Deposit(ctx, owner, r.protocol.GR, cfg)
	case registry.ActionBorrow:
		return p.Borrow(ctx, owner, cfg)
	case registry.ActionRepay:
		return p.Repay(ctx, owner, cfg)
	case registry.ActionWithdrawSUI:
		return p.Withdraw(ctx, owner, r.protocol.SUI, cfg)
	case registry.ActionWithdrawUSDC:
		return p.Withdraw(ctx, owner, r.protocol.USDC, cfg)
	case registry.ActionWithdrawGR:
		return p.Withdraw(ctx, owner, r.protocol.GR, cfg)
	case registry.ActionConnect:
		return execution.Plan{}, clierr.New(clierr.CodeUnsupported, "connect is an off-chain action and has no transaction")
	default:
		return execution.Plan{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown action %q", action))
	}
}

// ParseActions splits a comma separated list into known action names.
// "all" expands to the full run order.
func ParseActions(raw string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		name := Normalize(part)
		if name == "" {
			continue
		}
		if name == "all" {
			return RunAllOrder(), nil
		}
		if _, ok := Lookup(name); !ok {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown action %q", part))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, clierr.New(clierr.CodeUsage, "at least one action is required")
	}
	return out, nil
}
