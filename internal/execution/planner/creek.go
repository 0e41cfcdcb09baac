package planner

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution"
	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
	"github.com/ggonzalez94/creek-cli/internal/providers"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

// Planner composes one program per Creek action. Every method reads fresh
// chain state and never submits.
type Planner struct {
	protocol registry.Protocol
	chain    providers.ChainReader
	amounts  *amount.Resolver
}

func New(protocol registry.Protocol, chain providers.ChainReader) *Planner {
	return &Planner{protocol: protocol, chain: chain, amounts: amount.NewResolver(chain)}
}

func (p *Planner) Protocol() registry.Protocol { return p.protocol }

// Faucet mints the fixed XAUM and USDC faucet amounts to owner.
func (p *Planner) Faucet(_ context.Context, owner string) (execution.Plan, error) {
	b := ptb.NewBuilder()
	recipient := b.PureAddress(owner)
	b.MoveCall(
		registry.Target(registry.PackageOf(p.protocol.XAUM), "coin_xaum", "mint"),
		nil,
		b.Object(p.protocol.XAUMMintCapID), b.PureU64(p.protocol.FaucetXAUMAmount()), recipient,
	)
	b.MoveCall(
		registry.Target(registry.PackageOf(p.protocol.USDC), "usdc", "mint"),
		nil,
		b.Object(p.protocol.USDCTreasuryID), b.PureU64(p.protocol.FaucetUSDCAmount()), recipient,
	)
	return p.finish(b, execution.Plan{Action: registry.ActionFaucet, Asset: "XAUM+USDC", Amount: p.protocol.FaucetXAUMAmount()})
}

// Swap converts USDC into GUSD through the vault.
func (p *Planner) Swap(ctx context.Context, owner string, cfg amount.Config) (execution.Plan, error) {
	asset := p.protocol.USDC
	value, err := p.amounts.Resolve(ctx, owner, asset, cfg)
	if err != nil {
		return execution.Plan{}, err
	}
	if value.Sign() == 0 {
		return execution.Skip(registry.ActionSwap, asset.Symbol, "0 balance or amount"), nil
	}
	b := ptb.NewBuilder()
	spend, err := AggregateCoins(ctx, p.chain, b, owner, asset.CoinType, value)
	if err != nil {
		return execution.Plan{}, err
	}
	b.MoveCall(
		registry.Target(p.protocol.PackageID, "gusd_usdc_vault", "mint_gusd"),
		nil,
		b.Object(p.protocol.GUSDVaultID), b.Object(p.protocol.LendingMarketID), spend.Spend, b.Object(p.protocol.ClockID),
	)
	returnRemainders(b, owner, spend)
	return p.finish(b, execution.Plan{Action: registry.ActionSwap, Asset: asset.Symbol, Amount: value})
}

// Stake stakes XAUM with the staking manager.
func (p *Planner) Stake(ctx context.Context, owner string, cfg amount.Config) (execution.Plan, error) {
	asset := p.protocol.XAUM
	value, err := p.amounts.Resolve(ctx, owner, asset, cfg)
	if err != nil {
		return execution.Plan{}, err
	}
	if value.Sign() == 0 {
		return execution.Skip(registry.ActionStake, asset.Symbol, "0 balance or amount"), nil
	}
	b := ptb.NewBuilder()
	spend, err := AggregateCoins(ctx, p.chain, b, owner, asset.CoinType, value)
	if err != nil {
		return execution.Plan{}, err
	}
	b.MoveCall(
		registry.Target(p.protocol.PackageID, "staking_manager", "stake_xaum"),
		nil,
		b.Object(p.protocol.StakingManagerID), spend.Spend,
	)
	returnRemainders(b, owner, spend)
	return p.finish(b, execution.Plan{Action: registry.ActionStake, Asset: asset.Symbol, Amount: value})
}

// Redeem burns equal amounts of GR and GY back into XAUM.
func (p *Planner) Redeem(ctx context.Context, owner string, cfg amount.Config) (execution.Plan, error) {
	gr, gy := p.protocol.GR, p.protocol.GY
	value, err := p.amounts.ResolvePaired(ctx, owner, gr, gy, cfg)
	if err != nil {
		return execution.Plan{}, err
	}
	if value.Sign() == 0 {
		return execution.Skip(registry.ActionRedeem, "GR+GY", "no GR/GY pairs found"), nil
	}
	b := ptb.NewBuilder()
	grSpend, err := AggregateCoins(ctx, p.chain, b, owner, gr.CoinType, value)
	if err != nil {
		return execution.Plan{}, err
	}
	gySpend, err := AggregateCoins(ctx, p.chain, b, owner, gy.CoinType, value)
	if err != nil {
		return execution.Plan{}, err
	}
	b.MoveCall(
		registry.Target(p.protocol.PackageID, "staking_manager", "unstake"),
		nil,
		b.Object(p.protocol.StakingManagerID), grSpend.Spend, gySpend.Spend,
	)
	returnRemainders(b, owner, grSpend, gySpend)
	return p.finish(b, execution.Plan{Action: registry.ActionRedeem, Asset: "GR+GY", Amount: value})
}

// Deposit adds asset as collateral, opening an obligation first when the
// owner has none. Native SUI is split off the gas coin.
func (p *Planner) Deposit(ctx context.Context, owner string, asset registry.Asset, cfg amount.Config) (execution.Plan, error) {
	action := "deposit-" + strings.ToLower(asset.Symbol)
	value, err := p.amounts.Resolve(ctx, owner, asset, cfg)
	if err != nil {
		return execution.Plan{}, err
	}
	if value.Sign() == 0 {
		return execution.Skip(action, asset.Symbol, "0 balance or amount"), nil
	}
	obligation, exists, err := LookupObligation(ctx, p.chain, owner, p.protocol.ObligationKeyTypeName)
	if err != nil {
		return execution.Plan{}, err
	}

	b := ptb.NewBuilder()
	var spend SpendPlan
	if asset.IsNative() {
		spend = SpendPlan{Spend: b.SplitCoins(ptb.GasCoin(), b.PureU64(value))[0]}
	} else {
		spend, err = AggregateCoins(ctx, p.chain, b, owner, asset.CoinType, value)
		if err != nil {
			return execution.Plan{}, err
		}
	}

	version := b.Object(p.protocol.LendingVersionID)
	var obligationRef, hotPotato ptb.Argument
	if exists {
		obligationRef = b.Object(obligation.ID)
	} else {
		opened := b.MoveCall(registry.Target(p.protocol.PackageID, "open_obligation", "open_obligation"), nil, version)
		obligationRef = opened.Nested(0)
		hotPotato = opened.Nested(2)
		b.TransferObjects([]ptb.Argument{opened.Nested(1)}, b.PureAddress(owner))
	}
	b.MoveCall(
		registry.Target(p.protocol.PackageID, "deposit_collateral", "deposit_collateral"),
		[]string{asset.CoinType},
		version, obligationRef, b.Object(p.protocol.LendingMarketID), spend.Spend,
	)
	if !exists {
		b.MoveCall(registry.Target(p.protocol.PackageID, "open_obligation", "return_obligation"), nil, version, obligationRef, hotPotato)
	}
	returnRemainders(b, owner, spend)
	return p.finish(b, execution.Plan{Action: action, Asset: asset.Symbol, Amount: value})
}

// Borrow draws GUSD against the owner's obligation after refreshing prices.
func (p *Planner) Borrow(ctx context.Context, owner string, cfg amount.Config) (execution.Plan, error) {
	asset := p.protocol.GUSD
	value, warning := amount.ResolveFixed(asset, cfg)
	if value.Sign() == 0 {
		return withWarning(execution.Skip(registry.ActionBorrow, asset.Symbol, "0 amount"), warning), nil
	}
	obligation, exists, err := LookupObligation(ctx, p.chain, owner, p.protocol.ObligationKeyTypeName)
	if err != nil {
		return execution.Plan{}, err
	}
	if !exists {
		return execution.Plan{}, clierr.New(clierr.CodeNoPosition, "no obligation found; deposit collateral first")
	}
	b := ptb.NewBuilder()
	InjectOracleRefresh(b, p.protocol, p.protocol.OracleAssets())
	b.MoveCall(
		registry.Target(p.protocol.PackageID, "borrow", "borrow_entry"),
		nil,
		p.lendingArgs(b, obligation, value)...,
	)
	return p.finish(b, withWarning(execution.Plan{Action: registry.ActionBorrow, Asset: asset.Symbol, Amount: value}, warning))
}

// Repay pays GUSD back into the owner's obligation.
func (p *Planner) Repay(ctx context.Context, owner string, cfg amount.Config) (execution.Plan, error) {
	asset := p.protocol.GUSD
	value, err := p.amounts.Resolve(ctx, owner, asset, cfg)
	if err != nil {
		return execution.Plan{}, err
	}
	if value.Sign() == 0 {
		return execution.Skip(registry.ActionRepay, asset.Symbol, "0 balance or amount"), nil
	}
	obligation, exists, err := LookupObligation(ctx, p.chain, owner, p.protocol.ObligationKeyTypeName)
	if err != nil {
		return execution.Plan{}, err
	}
	if !exists {
		return execution.Plan{}, clierr.New(clierr.CodeNoPosition, "no obligation found")
	}
	b := ptb.NewBuilder()
	spend, err := AggregateCoins(ctx, p.chain, b, owner, asset.CoinType, value)
	if err != nil {
		return execution.Plan{}, err
	}
	b.MoveCall(
		registry.Target(p.protocol.PackageID, "repay", "repay"),
		[]string{asset.CoinType},
		b.Object(p.protocol.LendingVersionID), b.Object(obligation.ID), b.Object(p.protocol.LendingMarketID), spend.Spend, b.Object(p.protocol.ClockID),
	)
	returnRemainders(b, owner, spend)
	return p.finish(b, execution.Plan{Action: registry.ActionRepay, Asset: asset.Symbol, Amount: value})
}

// Withdraw takes collateral of asset out of the owner's obligation after
// refreshing prices.
func (p *Planner) Withdraw(ctx context.Context, owner string, asset registry.Asset, cfg amount.Config) (execution.Plan, error) {
	action := "withdraw-" + strings.ToLower(asset.Symbol)
	value, warning := amount.ResolveFixed(asset, cfg)
	if value.Sign() == 0 {
		return withWarning(execution.Skip(action, asset.Symbol, "0 amount"), warning), nil
	}
	obligation, exists, err := LookupObligation(ctx, p.chain, owner, p.protocol.ObligationKeyTypeName)
	if err != nil {
		return execution.Plan{}, err
	}
	if !exists {
		return execution.Plan{}, clierr.New(clierr.CodeNoWithdrawTarget, "no obligation found; nothing to withdraw")
	}
	b := ptb.NewBuilder()
	InjectOracleRefresh(b, p.protocol, p.protocol.OracleAssets())
	b.MoveCall(
		registry.Target(p.protocol.PackageID, "withdraw_collateral", "withdraw_collateral_entry"),
		[]string{asset.CoinType},
		p.lendingArgs(b, obligation, value)...,
	)
	return p.finish(b, withWarning(execution.Plan{Action: action, Asset: asset.Symbol, Amount: value}, warning))
}

// lendingArgs is the argument list shared by borrow_entry and
// withdraw_collateral_entry.
func (p *Planner) lendingArgs(b *ptb.Builder, obligation Obligation, value *big.Int) []ptb.Argument {
	return []ptb.Argument{
		b.Object(p.protocol.LendingVersionID),
		b.Object(obligation.ID),
		b.Object(obligation.KeyID),
		b.Object(p.protocol.LendingMarketID),
		b.Object(p.protocol.DecimalsRegistryID),
		b.PureU64(value),
		b.Object(p.protocol.XOracleID),
		b.Object(p.protocol.ClockID),
	}
}

func (p *Planner) finish(b *ptb.Builder, plan execution.Plan) (execution.Plan, error) {
	program, err := b.Finish()
	if _, ok := clierr.As(err); ok {
		return execution.Plan{}, err
	}
	if err != nil {
		return execution.Plan{}, clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("compose %s", plan.Action), err)
	}
	plan.Program = program
	return plan, nil
}

func withWarning(plan execution.Plan, warning string) execution.Plan {
	if warning != "" {
		plan.Warnings = append(plan.Warnings, warning)
	}
	return plan
}
