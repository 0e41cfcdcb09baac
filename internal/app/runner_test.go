package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ggonzalez94/creek-cli/internal/config"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/model"
	"github.com/ggonzalez94/creek-cli/internal/providers"
	"github.com/ggonzalez94/creek-cli/internal/providers/sui"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

var testKeys = strings.Join([]string{
	"0x" + strings.Repeat("11", 32),
	strings.Repeat("22", 32),
	"not-a-key",
}, ",")

type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	submits  int
}

func (f *fakeLedger) Info() model.ProviderInfo {
	return model.ProviderInfo{Name: "sui", Type: "ledger"}
}

func (f *fakeLedger) Balance(_ context.Context, _ string, coinType string) (*big.Int, error) {
	if v, ok := f.balances[coinType]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *fakeLedger) Coins(context.Context, string, string) ([]providers.Coin, error) {
	return nil, nil
}

func (f *fakeLedger) OwnedObjects(context.Context, string, string) ([]providers.OwnedObject, error) {
	return nil, nil
}

func (f *fakeLedger) Submit(_ context.Context, _ signer.Signer, program ptb.Program) (providers.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	return providers.Receipt{Digest: fmt.Sprintf("digest-%d", f.submits), GasUsed: big.NewInt(1000)}, nil
}

type fakeRegistrar struct {
	mu        sync.Mutex
	addresses []string
	fail      bool
}

func (f *fakeRegistrar) Info() model.ProviderInfo {
	return model.ProviderInfo{Name: "creek", Type: "registration"}
}

func (f *fakeRegistrar) Connect(_ context.Context, addr string) (providers.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses = append(f.addresses, addr)
	if f.fail {
		return providers.Registration{}, clierr.New(clierr.CodeExternal, "API error (500): boom")
	}
	return providers.Registration{Success: true, Message: "ok"}, nil
}

type harness struct {
	runner    *Runner
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	ledger    *fakeLedger
	registrar *fakeRegistrar
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmp, "cache"))
	t.Setenv("CREEK_CONFIG", "")

	h := &harness{
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
		ledger:    &fakeLedger{balances: map[string]*big.Int{}},
		registrar: &fakeRegistrar{},
	}
	r := NewRunnerWithWriters(h.stdout, h.stderr)
	r.loadWallets = func() ([]*signer.Wallet, []error, error) {
		wallets, skipped := signer.LoadWallets(testKeys)
		return wallets, skipped, nil
	}
	r.newLedger = func(config.Settings, sui.ObjectCache) (providers.Ledger, error) { return h.ledger, nil }
	r.newRegistrar = func(config.Settings) (providers.Registrar, error) { return h.registrar, nil }
	h.runner = r
	return h
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	return h.runner.Run(append(args, "--log-level", "error"))
}

func decodeSummary(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse output json: %v output=%s", err, buf.String())
	}
	return out
}

func lastEnvelope(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	text := buf.String()
	idx := strings.LastIndex(text, "{\n  \"version\"")
	if idx < 0 {
		t.Fatalf("no envelope in output: %s", text)
	}
	var env map[string]any
	if err := json.Unmarshal([]byte(text[idx:]), &env); err != nil {
		t.Fatalf("failed to parse envelope: %v output=%s", err, text)
	}
	return env
}

func outcomes(t *testing.T, summary map[string]any) []map[string]any {
	t.Helper()
	raw, ok := summary["outcomes"].([]any)
	if !ok {
		t.Fatalf("missing outcomes: %+v", summary)
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		out = append(out, item.(map[string]any))
	}
	return out
}

func TestTrimRootPath(t *testing.T) {
	if got := trimRootPath("creek history list"); got != "history list" {
		t.Fatalf("unexpected trim result: %s", got)
	}
}

func TestSplitCSV(t *testing.T) {
	items := splitCSV("SUI, usdc ,")
	if len(items) != 2 || items[0] != "sui" || items[1] != "usdc" {
		t.Fatalf("unexpected split: %#v", items)
	}
}

func TestRunnerActionsList(t *testing.T) {
	h := newHarness(t)
	if code := h.run("actions", "--results-only"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(h.stdout.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse output json: %v output=%s", err, h.stdout.String())
	}
	if len(out) != 13 || out[0]["name"] != registry.ActionConnect {
		t.Fatalf("unexpected actions: %+v", out)
	}
	if out[2]["default_amount"] != "1 USDC" {
		t.Fatalf("unexpected swap default: %+v", out[2])
	}
}

func TestRunnerRunConnectRecordsHistory(t *testing.T) {
	h := newHarness(t)
	if code := h.run("run", "connect", "--results-only"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	summary := decodeSummary(t, h.stdout)
	if summary["succeeded"].(float64) != 2 || summary["failed"].(float64) != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(h.registrar.addresses) != 2 {
		t.Fatalf("expected two registrations, got %v", h.registrar.addresses)
	}

	if code := h.run("history", "list", "--results-only", "--action", "connect"); code != 0 {
		t.Fatalf("history failed: %d stderr=%s", code, h.stderr.String())
	}
	var records []map[string]any
	if err := json.Unmarshal(h.stdout.Bytes(), &records); err != nil {
		t.Fatalf("failed to parse history: %v output=%s", err, h.stdout.String())
	}
	if len(records) != 2 || records[0]["status"] != "completed" {
		t.Fatalf("unexpected history: %+v", records)
	}
}

func TestRunnerRunFaucetPlanOnlyDoesNotSubmit(t *testing.T) {
	h := newHarness(t)
	if code := h.run("run", "faucet", "--plan-only", "--results-only"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	summary := decodeSummary(t, h.stdout)
	if summary["planned"].(float64) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if h.ledger.submits != 0 {
		t.Fatalf("plan-only submitted %d transactions", h.ledger.submits)
	}
	for _, o := range outcomes(t, summary) {
		if cmds, _ := o["commands"].([]any); len(cmds) != 2 {
			t.Fatalf("expected two move calls, got %+v", o)
		}
	}
}

func TestRunnerRunAllOrdersWalletsThenActions(t *testing.T) {
	h := newHarness(t)
	code := h.run("run-all", "--actions", "connect,faucet", "--action-delay", "0s", "--results-only")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	items := outcomes(t, decodeSummary(t, h.stdout))
	if len(items) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(items))
	}
	wantActions := []string{"connect", "faucet", "connect", "faucet"}
	for i, o := range items {
		if o["action"] != wantActions[i] || o["status"] != "success" {
			t.Fatalf("unexpected outcome %d: %+v", i, o)
		}
	}
	if items[0]["wallet"] != items[1]["wallet"] || items[1]["wallet"] == items[2]["wallet"] {
		t.Fatalf("expected wallet-major ordering: %+v", items)
	}
	if items[1]["digest"] != "digest-1" || h.ledger.submits != 2 {
		t.Fatalf("unexpected submission state: %+v submits=%d", items[1], h.ledger.submits)
	}
}

func TestRunnerStrictFailsOnActionFailure(t *testing.T) {
	h := newHarness(t)
	h.registrar.fail = true
	code := h.run("run", "connect", "--strict")
	if code != int(clierr.CodePartialStrict) {
		t.Fatalf("expected exit %d, got %d stderr=%s", clierr.CodePartialStrict, code, h.stderr.String())
	}
	env := lastEnvelope(t, h.stdout)
	data := env["data"].(map[string]any)
	if data["failed"].(float64) != 2 {
		t.Fatalf("expected both wallets to fail independently: %+v", data)
	}
	errEnv := lastEnvelope(t, h.stderr)
	if errEnv["success"] != false {
		t.Fatalf("expected failure envelope, got %+v", errEnv)
	}
}

func TestRunnerFailuresWithoutStrictExitZero(t *testing.T) {
	h := newHarness(t)
	h.registrar.fail = true
	if code := h.run("run", "connect", "--results-only"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	for _, o := range outcomes(t, decodeSummary(t, h.stdout)) {
		if o["status"] != "failed" || o["error_code"] != "external_call_failure" {
			t.Fatalf("unexpected outcome: %+v", o)
		}
	}
}

func TestRunnerBlockedActionUsesErrorEnvelope(t *testing.T) {
	h := newHarness(t)
	code := h.run("run", "swap", "--enable-actions", "connect", "--results-only")
	if code != int(clierr.CodeBlocked) {
		t.Fatalf("expected exit %d, got %d stderr=%s", clierr.CodeBlocked, code, h.stderr.String())
	}
	env := lastEnvelope(t, h.stderr)
	if env["success"] != false {
		t.Fatalf("expected success=false, got %v", env["success"])
	}
	if h.ledger.submits != 0 || len(h.registrar.addresses) != 0 {
		t.Fatal("blocked action must not reach any wallet")
	}
}

func TestRunnerUnknownActionIsUsageError(t *testing.T) {
	h := newHarness(t)
	if code := h.run("run", "teleport"); code != int(clierr.CodeUsage) {
		t.Fatalf("expected usage exit, got %d", code)
	}
	if code := h.run("run-all", "--actions", "swap,teleport"); code != int(clierr.CodeUsage) {
		t.Fatalf("expected usage exit, got %d", code)
	}
	if code := h.run("run", "connect", "--mode", "percent", "--value", "50%"); code != int(clierr.CodeUsage) {
		t.Fatalf("expected usage exit for amount on connect, got %d", code)
	}
}

func TestRunnerScheduleRejectsInvalidCronBeforeRunning(t *testing.T) {
	h := newHarness(t)
	if code := h.run("schedule", "--cron", "30 9 * * *", "--actions", "connect", "--run-now"); code != int(clierr.CodeUsage) {
		t.Fatalf("expected usage exit for five-field cron, got %d", code)
	}
	if len(h.registrar.addresses) != 0 || h.ledger.submits != 0 {
		t.Fatal("invalid schedule must not run any batch")
	}
}

func TestRunnerWalletsReportsSkippedKeys(t *testing.T) {
	h := newHarness(t)
	if code := h.run("wallets"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	env := decodeSummary(t, h.stdout)
	wallets := env["data"].([]any)
	warnings := env["warnings"].([]any)
	if len(wallets) != 2 || len(warnings) != 1 {
		t.Fatalf("unexpected wallets output: %+v", env)
	}
	if !strings.Contains(warnings[0].(string), "key #3 skipped") {
		t.Fatalf("unexpected warning: %v", warnings[0])
	}
}

func TestRunnerBalancesFirstWallet(t *testing.T) {
	h := newHarness(t)
	h.ledger.balances[registry.SUICoinType] = big.NewInt(1_500_000_000)
	if code := h.run("balances", "--assets", "sui", "--results-only"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	var items []map[string]any
	if err := json.Unmarshal(h.stdout.Bytes(), &items); err != nil {
		t.Fatalf("failed to parse balances: %v output=%s", err, h.stdout.String())
	}
	if len(items) != 1 || items[0]["amount"] != "1.5" || items[0]["asset"] != "SUI" {
		t.Fatalf("unexpected balances: %+v", items)
	}
}

func TestRunnerBalancesSelectsWalletByAddress(t *testing.T) {
	h := newHarness(t)
	h.ledger.balances[registry.SUICoinType] = big.NewInt(2_000_000_000)
	wallets, _ := signer.LoadWallets(testKeys)
	second := strings.ToUpper(strings.TrimPrefix(wallets[1].Address(), "0x"))
	if code := h.run("balances", "--wallet", "0x"+second, "--assets", registry.SUICoinType, "--results-only"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	var items []map[string]any
	if err := json.Unmarshal(h.stdout.Bytes(), &items); err != nil {
		t.Fatalf("failed to parse balances: %v output=%s", err, h.stdout.String())
	}
	if len(items) != 1 || items[0]["wallet"] != wallets[1].Address() || items[0]["amount"] != "2" {
		t.Fatalf("unexpected balances: %+v", items)
	}

	if code := h.run("balances", "--wallet", "0x1234"); code != int(clierr.CodeUsage) {
		t.Fatalf("expected usage exit for unknown wallet, got %d", code)
	}
}

func TestRunnerInteractiveRequiresTerminal(t *testing.T) {
	h := newHarness(t)
	if code := h.run("interactive"); code != int(clierr.CodeUsage) {
		t.Fatalf("expected usage exit, got %d", code)
	}
}

func TestRunnerInteractiveRunsSelectedAction(t *testing.T) {
	h := newHarness(t)
	h.runner.isTerminal = func() bool { return true }
	h.runner.stdin = strings.NewReader("1\n\n0\n")
	if code := h.run("interactive"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	if len(h.registrar.addresses) != 2 {
		t.Fatalf("expected connect for both wallets, got %v", h.registrar.addresses)
	}
	out := h.stdout.String()
	for _, want := range []string{"Loaded 2 wallets.", "--- Connect API complete ---", "Exiting."} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRunnerInteractiveCancelSkipsAction(t *testing.T) {
	h := newHarness(t)
	h.runner.isTerminal = func() bool { return true }
	// swap, then the cancel preset (last entry), then exit
	h.runner.stdin = strings.NewReader("3\n7\n\n0\n")
	if code := h.run("interactive"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	if !strings.Contains(h.stdout.String(), "Action cancelled.") {
		t.Fatalf("expected cancellation message:\n%s", h.stdout.String())
	}
	if h.ledger.submits != 0 {
		t.Fatal("canceled action must not submit")
	}
}

func TestRunnerSchemaListsActions(t *testing.T) {
	h := newHarness(t)
	if code := h.run("schema", "run", "--results-only"); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, h.stderr.String())
	}
	out := decodeSummary(t, h.stdout)
	valid, _ := out["valid_args"].([]any)
	if out["path"] != "creek run" || len(valid) != 13 {
		t.Fatalf("unexpected schema: %+v", out)
	}
}
