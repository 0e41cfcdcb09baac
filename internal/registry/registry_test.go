package registry

import (
	"testing"
)

func TestTestnetAssetsHaveNineDecimals(t *testing.T) {
	p := Testnet()
	for _, asset := range p.Assets() {
		if asset.Decimals != 9 {
			t.Fatalf("expected 9 decimals for %s, got %d", asset.Symbol, asset.Decimals)
		}
		if asset.CoinType == "" {
			t.Fatalf("empty coin type for %s", asset.Symbol)
		}
	}
	if !p.SUI.IsNative() || p.USDC.IsNative() {
		t.Fatal("only SUI should be native")
	}
}

func TestOracleAssetsOrder(t *testing.T) {
	p := Testnet()
	got := p.OracleAssets()
	want := []string{"SUI", "USDC", "GR", "GUSD"}
	if len(got) != len(want) {
		t.Fatalf("expected %d oracle assets, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Symbol != want[i] {
			t.Fatalf("oracle asset %d: expected %s, got %s", i, want[i], got[i].Symbol)
		}
	}
}

func TestDefaultAmountReturnsCopy(t *testing.T) {
	p := Testnet()
	value, ok := p.DefaultAmount("repay")
	if !ok || value.String() != "5000000001" {
		t.Fatalf("unexpected repay default: ok=%v value=%v", ok, value)
	}
	value.SetInt64(0)
	again, _ := p.DefaultAmount("repay")
	if again.String() != "5000000001" {
		t.Fatalf("default amount was mutated through returned pointer: %s", again)
	}
	if _, ok := p.DefaultAmount("faucet"); ok {
		t.Fatal("faucet has no configurable default")
	}
}

func TestAssetLookup(t *testing.T) {
	p := Testnet()
	if asset, ok := p.AssetBySymbol(" gusd "); !ok || asset.CoinType != p.GUSD.CoinType {
		t.Fatalf("unexpected symbol lookup result: %+v ok=%v", asset, ok)
	}
	if asset, ok := p.AssetByCoinType(p.GR.CoinType); !ok || asset.Symbol != "GR" {
		t.Fatalf("unexpected coin type lookup result: %+v ok=%v", asset, ok)
	}
	if _, ok := p.AssetBySymbol("ETH"); ok {
		t.Fatal("did not expect ETH to resolve")
	}
}

func TestResolveRPCURL(t *testing.T) {
	got, err := ResolveRPCURL("", NetworkTestnet)
	if err != nil || got != TestnetRPCURL {
		t.Fatalf("unexpected default rpc: %q err=%v", got, err)
	}
	got, err = ResolveRPCURL(" http://127.0.0.1:9000 ", "mainnet")
	if err != nil || got != "http://127.0.0.1:9000" {
		t.Fatalf("override should win: %q err=%v", got, err)
	}
	if _, err := ResolveRPCURL("", "mainnet"); err == nil {
		t.Fatal("expected error for unknown network without override")
	}
}

func TestIsAllowedEndpoint(t *testing.T) {
	cases := map[string]bool{
		"https://api-test.creek.finance": true,
		"http://127.0.0.1:8080":          true,
		"http://localhost":               true,
		"http://api-test.creek.finance":  false,
		"ftp://localhost":                false,
		"not a url":                      false,
	}
	for endpoint, want := range cases {
		if got := IsAllowedEndpoint(endpoint); got != want {
			t.Fatalf("IsAllowedEndpoint(%q) = %v, want %v", endpoint, got, want)
		}
	}
}

func TestConnectURL(t *testing.T) {
	if got := ConnectURL("https://api-test.creek.finance/"); got != "https://api-test.creek.finance/api/user/connect" {
		t.Fatalf("unexpected connect url %q", got)
	}
}

func TestPackagesIncludeFaucetPackages(t *testing.T) {
	p := Testnet()
	pkgs := p.Packages()
	if pkgs[0] != p.PackageID {
		t.Fatalf("expected protocol package first, got %s", pkgs[0])
	}
	if PackageOf(p.USDC) != PackageOf(p.XAUM) {
		t.Fatal("usdc and xaum faucets share a package on testnet")
	}
	found := false
	for _, pkg := range pkgs {
		if pkg == PackageOf(p.XAUM) {
			found = true
		}
	}
	if !found {
		t.Fatalf("xaum package missing from %v", pkgs)
	}
}
