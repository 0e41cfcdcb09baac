package registry

import (
	"math/big"
	"strings"
)

// Asset is a fungible coin type known to the protocol.
type Asset struct {
	Symbol   string
	CoinType string
	Decimals int32
}

// IsNative reports whether the asset is the ledger's gas coin.
func (a Asset) IsNative() bool {
	return a.CoinType == SUICoinType
}

const (
	NetworkTestnet = "testnet"

	ClockObjectID = "0x6"
	SUICoinType   = "0x2::sui::SUI"

	// Gas reserve kept back when spending a percentage of the native coin (0.01 SUI).
	NativeGasReserve int64 = 10_000_000
)

// Protocol is the immutable set of package ids, shared objects, assets and
// default amounts for one Creek deployment. Construct it with Testnet.
type Protocol struct {
	Network string

	PackageID             string
	OraclePackageID       string
	ManualRulePackageID   string
	QueryPackageID        string
	ClockID               string
	XAUMMintCapID         string
	USDCTreasuryID        string
	GUSDVaultID           string
	StakingManagerID      string
	LendingMarketID       string
	LendingVersionID      string
	DecimalsRegistryID    string
	XOracleID             string
	ObligationKeyTypeName string

	SUI  Asset
	USDC Asset
	XAUM Asset
	GUSD Asset
	GR   Asset
	GY   Asset

	faucetXAUM *big.Int
	faucetUSDC *big.Int
	defaults   map[string]*big.Int
}

// Testnet returns the Creek deployment on Sui testnet.
func Testnet() Protocol {
	const (
		protocolPkg = "0x8cee41afab63e559bc236338bfd7c6b2af07c9f28f285fc8246666a7ce9ae97a"
		xaumPkg     = "0xa03cb0b29e92c6fa9bfb7b9c57ffdba5e23810f20885b4390f724553d32efb8b"
		gusdPkg     = "0x5434351f2dcae30c0c4b97420475c5edc966b02fd7d0bbe19ea2220d2f623586"
		grPkg       = "0x5504354cf3dcbaf64201989bc734e97c1d89bba5c7f01ff2704c43192cc2717c"
		gyPkg       = "0x0ac2d5ebd2834c0db725eedcc562c60fa8e281b1772493a4d199fd1e70065671"
	)
	return Protocol{
		Network:               NetworkTestnet,
		PackageID:             protocolPkg,
		OraclePackageID:       "0xca9b2f66c5ab734939e048d0732e2a09f486402bb009d88f95c27abe8a4872ee",
		ManualRulePackageID:   "0xbd6d8bb7f40ca9921d0c61404cba6dcfa132f184cf8c0f273008a103889eb0e8",
		QueryPackageID:        "0x4d1f33ee71128c75472eca1b1ad84cc66f1df6257bbba820eb382c1865aa4ab9",
		ClockID:               ClockObjectID,
		XAUMMintCapID:         "0x66984752afbd878aaee450c70142747bb31fca2bb63f0a083d75c361da39adb1",
		USDCTreasuryID:        "0x77153159c4e3933658293a46187c30ef68a8f98aa48b0ce76ffb0e6d20c0776b",
		GUSDVaultID:           "0x1fc1b07f7c1d06d4d8f0b1d0a2977418ad71df0d531c476273a2143dfeffba0e",
		StakingManagerID:      "0x5c9d26e8310f740353eac0e67c351f71bad8748cf5ac90305ffd32a5f3326990",
		LendingMarketID:       "0x166dd68901d2cb47b55c7cfbb7182316f84114f9e12da9251fd4c4f338e37f5d",
		LendingVersionID:      "0x13f4679d0ebd6fc721875af14ee380f45cde02f81d690809ac543901d66f6758",
		DecimalsRegistryID:    "0x3a865c5bc0e47efc505781598396d75b647e4f1218359e89b08682519c3ac060",
		XOracleID:             "0x9052b77605c1e2796582e996e0ce60e2780c9a440d8878a319fa37c50ca32530",
		ObligationKeyTypeName: protocolPkg + "::obligation::ObligationKey",

		SUI:  Asset{Symbol: "SUI", CoinType: SUICoinType, Decimals: 9},
		USDC: Asset{Symbol: "USDC", CoinType: xaumPkg + "::usdc::USDC", Decimals: 9},
		XAUM: Asset{Symbol: "XAUM", CoinType: xaumPkg + "::coin_xaum::COIN_XAUM", Decimals: 9},
		GUSD: Asset{Symbol: "GUSD", CoinType: gusdPkg + "::coin_gusd::COIN_GUSD", Decimals: 9},
		GR:   Asset{Symbol: "GR", CoinType: grPkg + "::coin_gr::COIN_GR", Decimals: 9},
		GY:   Asset{Symbol: "GY", CoinType: gyPkg + "::coin_gy::COIN_GY", Decimals: 9},

		faucetXAUM: big.NewInt(1_000_000_000),
		faucetUSDC: big.NewInt(10_000_000_000),
		defaults: map[string]*big.Int{
			ActionSwap:         big.NewInt(1_000_000_000),
			ActionStake:        big.NewInt(1_000_000_000),
			ActionRedeem:       big.NewInt(100_000_000_000),
			ActionDepositSUI:   big.NewInt(10_000_000),
			ActionDepositUSDC:  big.NewInt(1_000_000_000),
			ActionDepositGR:    big.NewInt(1_000_000_000),
			ActionBorrow:       big.NewInt(5_000_000_000),
			ActionRepay:        big.NewInt(5_000_000_001),
			ActionWithdrawSUI:  big.NewInt(10_000_000),
			ActionWithdrawUSDC: big.NewInt(1_000_000_000),
			ActionWithdrawGR:   big.NewInt(1_000_000_000),
		},
	}
}

// Assets returns every known asset in display order.
func (p Protocol) Assets() []Asset {
	return []Asset{p.SUI, p.USDC, p.XAUM, p.GUSD, p.GR, p.GY}
}

// AssetBySymbol resolves a case-insensitive symbol.
func (p Protocol) AssetBySymbol(symbol string) (Asset, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, asset := range p.Assets() {
		if asset.Symbol == symbol {
			return asset, true
		}
	}
	return Asset{}, false
}

// AssetByCoinType resolves a full coin type string.
func (p Protocol) AssetByCoinType(coinType string) (Asset, bool) {
	for _, asset := range p.Assets() {
		if asset.CoinType == coinType {
			return asset, true
		}
	}
	return Asset{}, false
}

// OracleAssets is the fixed price refresh order used before borrow and withdraw.
func (p Protocol) OracleAssets() []Asset {
	return []Asset{p.SUI, p.USDC, p.GR, p.GUSD}
}

// DefaultAmount returns a copy of the default base-unit amount for an action.
func (p Protocol) DefaultAmount(action string) (*big.Int, bool) {
	value, ok := p.defaults[action]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(value), true
}

func (p Protocol) FaucetXAUMAmount() *big.Int { return new(big.Int).Set(p.faucetXAUM) }

func (p Protocol) FaucetUSDCAmount() *big.Int { return new(big.Int).Set(p.faucetUSDC) }

// Target formats a fully qualified Move function name.
func Target(pkg, module, function string) string {
	return pkg + "::" + module + "::" + function
}
