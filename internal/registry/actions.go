package registry

import "strings"

// Action names accepted on the command line and stored in run history.
const (
	ActionConnect      = "connect"
	ActionFaucet       = "faucet"
	ActionSwap         = "swap"
	ActionStake        = "stake"
	ActionRedeem       = "redeem"
	ActionDepositSUI   = "deposit-sui"
	ActionDepositUSDC  = "deposit-usdc"
	ActionDepositGR    = "deposit-gr"
	ActionBorrow       = "borrow"
	ActionRepay        = "repay"
	ActionWithdrawSUI  = "withdraw-sui"
	ActionWithdrawUSDC = "withdraw-usdc"
	ActionWithdrawGR   = "withdraw-gr"
)

// Packages lists every Move package the CLI is allowed to call.
func (p Protocol) Packages() []string {
	return []string{
		p.PackageID,
		p.OraclePackageID,
		p.ManualRulePackageID,
		packageOf(p.XAUM.CoinType),
		packageOf(p.USDC.CoinType),
	}
}

// PackageOf returns the package that defines a coin type.
func PackageOf(asset Asset) string {
	return packageOf(asset.CoinType)
}

func packageOf(coinType string) string {
	pkg, _, _ := strings.Cut(coinType, "::")
	return pkg
}
