package planner

import (
	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

// InjectOracleRefresh appends a request, set-primary and confirm triple per
// asset so the lending market sees fresh prices within the same program.
func InjectOracleRefresh(b *ptb.Builder, protocol registry.Protocol, assets []registry.Asset) {
	for _, asset := range assets {
		typeArgs := []string{asset.CoinType}
		request := b.MoveCall(
			registry.Target(protocol.OraclePackageID, "x_oracle", "price_update_request"),
			typeArgs,
			b.Object(protocol.XOracleID),
		)
		b.MoveCall(
			registry.Target(protocol.ManualRulePackageID, "rule", "set_price_as_primary"),
			typeArgs,
			request, b.PureU64Value(1), b.Object(protocol.ClockID),
		)
		b.MoveCall(
			registry.Target(protocol.OraclePackageID, "x_oracle", "confirm_price_update_request"),
			typeArgs,
			b.Object(protocol.XOracleID), request, b.Object(protocol.ClockID),
		)
	}
}
