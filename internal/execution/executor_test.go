package execution

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/pattonkan/sui-go/suisigner"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	"github.com/ggonzalez94/creek-cli/internal/batch"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/model"
	"github.com/ggonzalez94/creek-cli/internal/providers"
)

const (
	testWallet  = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	testPackage = "0x00000000000000000000000000000000000000000000000000000000000000c1"
)

type stubWallet struct{}

func (stubWallet) Address() string { return testWallet }

func (stubWallet) Keypair() *suisigner.Signer { return nil }

type fakeLedger struct {
	submitted []ptb.Program
	err       error
	onSubmit  func()
}

func (f *fakeLedger) Info() model.ProviderInfo { return model.ProviderInfo{Name: "fake"} }

func (f *fakeLedger) Balance(context.Context, string, string) (*big.Int, error) {
	return new(big.Int), nil
}

func (f *fakeLedger) Coins(context.Context, string, string) ([]providers.Coin, error) {
	return nil, nil
}

func (f *fakeLedger) OwnedObjects(context.Context, string, string) ([]providers.OwnedObject, error) {
	return nil, nil
}

func (f *fakeLedger) Submit(_ context.Context, _ signer.Signer, program ptb.Program) (providers.Receipt, error) {
	f.submitted = append(f.submitted, program)
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if f.err != nil {
		return providers.Receipt{}, f.err
	}
	return providers.Receipt{Digest: "9xDigest", GasUsed: big.NewInt(1234)}, nil
}

type fakeRegistrar struct {
	reg providers.Registration
	err error
}

func (f fakeRegistrar) Info() model.ProviderInfo { return model.ProviderInfo{Name: "creek"} }

func (f fakeRegistrar) Connect(context.Context, string) (providers.Registration, error) {
	return f.reg, f.err
}

type fakeComposer struct {
	plan Plan
	err  error
}

func (f fakeComposer) Compose(context.Context, string, string, amount.Config) (Plan, error) {
	return f.plan, f.err
}

func callPlan(t *testing.T, pkg string) Plan {
	t.Helper()
	b := ptb.NewBuilder()
	b.MoveCall(pkg+"::staking_manager::stake_xaum", nil, b.Object("0x5"), b.PureU64Value(10))
	program, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	return Plan{Action: "stake", Asset: "XAUM", Program: program, Amount: big.NewInt(10)}
}

func testStep(action string) batch.Step {
	return batch.Step{Action: action, Amount: amount.Default(big.NewInt(10)), RunID: "run-1"}
}

func TestExecuteSubmitsAndRecordsSuccess(t *testing.T) {
	ledger := &fakeLedger{}
	store := openTestStore(t)
	svc := NewService(ServiceOptions{
		Ledger:   ledger,
		Composer: fakeComposer{plan: callPlan(t, testPackage)},
		Store:    store,
		Packages: []string{"0xc1"},
	})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("stake"))
	if out.Status != batch.StatusSucceeded || out.Digest != "9xDigest" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(ledger.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(ledger.submitted))
	}
	record, err := store.Get(out.ActionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Status != ActionStatusCompleted || record.TxDigest != "9xDigest" || record.GasUsed != "1234" || record.RunID != "run-1" {
		t.Fatalf("unexpected record %+v", record)
	}
	if len(record.Steps) != 1 || record.Steps[0].Status != StepStatusConfirmed {
		t.Fatalf("unexpected steps %+v", record.Steps)
	}
}

func TestExecuteSavesRunningRecordBeforeSubmit(t *testing.T) {
	store := openTestStore(t)
	var running []Action
	ledger := &fakeLedger{onSubmit: func() {
		var err error
		running, err = store.List(Filter{Status: ActionStatusRunning})
		if err != nil {
			t.Errorf("List failed: %v", err)
		}
	}}
	svc := NewService(ServiceOptions{
		Ledger:   ledger,
		Composer: fakeComposer{plan: callPlan(t, testPackage)},
		Store:    store,
		Packages: []string{"0xc1"},
	})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("stake"))
	if out.Status != batch.StatusSucceeded || len(out.Warnings) != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(running) != 1 || running[0].ActionID != out.ActionID {
		t.Fatalf("expected the running record to be stored during submit, got %+v", running)
	}
}

func TestExecuteWarnsWhenHistoryCannotBeSaved(t *testing.T) {
	store := openTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	ledger := &fakeLedger{}
	svc := NewService(ServiceOptions{
		Ledger:   ledger,
		Composer: fakeComposer{plan: callPlan(t, testPackage)},
		Store:    store,
		Packages: []string{"0xc1"},
	})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("stake"))
	if out.Status != batch.StatusSucceeded || len(ledger.submitted) != 1 {
		t.Fatalf("history failure must not block submission, got %+v", out)
	}
	if len(out.Warnings) != 1 || !strings.HasPrefix(out.Warnings[0], "run history not saved: ") {
		t.Fatalf("expected a single history warning, got %v", out.Warnings)
	}
}

func TestExecuteSkippedPlanSubmitsNothing(t *testing.T) {
	ledger := &fakeLedger{}
	store := openTestStore(t)
	svc := NewService(ServiceOptions{Ledger: ledger, Composer: fakeComposer{plan: Skip("swap", "USDC", "0 balance or amount")}, Store: store})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("swap"))
	if out.Status != batch.StatusSkipped || out.Message != "0 balance or amount" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(ledger.submitted) != 0 {
		t.Fatal("skipped plan must not be submitted")
	}
	record, err := store.Get(out.ActionID)
	if err != nil || record.Status != ActionStatusSkipped {
		t.Fatalf("expected skipped record, got %+v err=%v", record, err)
	}
}

func TestExecuteSubmitFailureIsCaptured(t *testing.T) {
	ledger := &fakeLedger{err: clierr.New(clierr.CodeExternal, "transaction failed: MoveAbort")}
	svc := NewService(ServiceOptions{Ledger: ledger, Composer: fakeComposer{plan: callPlan(t, testPackage)}})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("stake"))
	if out.Status != batch.StatusFailed || out.Code != "external_call_failure" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !clierr.HasCode(out.Err, clierr.CodeExternal) {
		t.Fatalf("expected external error, got %v", out.Err)
	}
}

func TestExecuteComposeErrorKeepsCode(t *testing.T) {
	svc := NewService(ServiceOptions{Ledger: &fakeLedger{}, Composer: fakeComposer{err: clierr.New(clierr.CodeNoPosition, "no obligation found")}})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("borrow"))
	if out.Status != batch.StatusFailed || out.Code != "no_position" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestExecuteBlocksUnknownPackages(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ServiceOptions{
		Ledger:   ledger,
		Composer: fakeComposer{plan: callPlan(t, "0xdead")},
		Packages: []string{testPackage},
	})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("stake"))
	if out.Status != batch.StatusFailed || !clierr.HasCode(out.Err, clierr.CodeBlocked) {
		t.Fatalf("expected blocked outcome, got %+v", out)
	}
	if len(ledger.submitted) != 0 {
		t.Fatal("blocked program must not be submitted")
	}
}

func TestExecutePlanOnlyDoesNotSubmit(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ServiceOptions{Ledger: ledger, Composer: fakeComposer{plan: callPlan(t, testPackage)}, PlanOnly: true})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("stake"))
	if out.Status != batch.StatusPlanned {
		t.Fatalf("expected planned outcome, got %+v", out)
	}
	if len(out.Commands) != 1 || out.Commands[0] != "staking_manager::stake_xaum" {
		t.Fatalf("unexpected commands %v", out.Commands)
	}
	if len(ledger.submitted) != 0 {
		t.Fatal("plan-only must not submit")
	}
}

func TestExecuteConnect(t *testing.T) {
	store := openTestStore(t)
	svc := NewService(ServiceOptions{Registrar: fakeRegistrar{reg: providers.Registration{Success: true, Message: "welcome"}}, Store: store})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("connect"))
	if out.Status != batch.StatusSucceeded || out.Message != "welcome" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	record, err := store.Get(out.ActionID)
	if err != nil || record.Status != ActionStatusCompleted || record.Steps[0].Type != StepTypeRegistration {
		t.Fatalf("unexpected record %+v err=%v", record, err)
	}
}

func TestExecuteConnectFailure(t *testing.T) {
	svc := NewService(ServiceOptions{Registrar: fakeRegistrar{err: clierr.Wrap(clierr.CodeExternal, "connect", errors.New("HTTP 500"))}})

	out := svc.Execute(context.Background(), stubWallet{}, testStep("connect"))
	if out.Status != batch.StatusFailed || out.Code != "external_call_failure" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
