package batch

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/pattonkan/sui-go/suisigner"
	"github.com/stretchr/testify/require"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
)

type stubWallet string

func (w stubWallet) Address() string { return string(w) }

func (w stubWallet) Keypair() *suisigner.Signer { return nil }

type recordingExecutor struct {
	calls  []string
	failOn map[string]error
	skipOn map[string]bool
	onCall func()
}

func (e *recordingExecutor) Execute(_ context.Context, wallet signer.Signer, step Step) Outcome {
	key := wallet.Address() + "/" + step.Action
	e.calls = append(e.calls, key)
	if e.onCall != nil {
		e.onCall()
	}
	if err, ok := e.failOn[key]; ok {
		return Failed(wallet.Address(), step, err)
	}
	if e.skipOn[key] {
		return Outcome{Wallet: wallet.Address(), Action: step.Action, Status: StatusSkipped, Message: "0 balance or amount"}
	}
	return Outcome{Wallet: wallet.Address(), Action: step.Action, Status: StatusSucceeded, Digest: "digest-" + key}
}

func steps(actions ...string) []Step {
	out := make([]Step, 0, len(actions))
	for _, a := range actions {
		out = append(out, Step{Action: a, Amount: amount.Default(big.NewInt(1))})
	}
	return out
}

func wallets(addrs ...string) []signer.Signer {
	out := make([]signer.Signer, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, stubWallet(a))
	}
	return out
}

func newTestRunner(exec Executor, delay time.Duration, sleeps *[]time.Duration) *Runner {
	r := NewRunner(exec, Options{Delay: delay})
	r.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return r
}

func TestRunVisitsWalletsOuterStepsInner(t *testing.T) {
	exec := &recordingExecutor{}
	var sleeps []time.Duration
	report := newTestRunner(exec, time.Second, &sleeps).Run(context.Background(), wallets("0xa", "0xb"), steps("faucet", "swap", "stake"))

	require.Equal(t, []string{
		"0xa/faucet", "0xa/swap", "0xa/stake",
		"0xb/faucet", "0xb/swap", "0xb/stake",
	}, exec.calls)
	require.Len(t, report.Outcomes, 6)
	require.Equal(t, 6, report.Count(StatusSucceeded))
	require.NotEmpty(t, report.ID)
	for _, o := range report.Outcomes {
		require.Equal(t, report.ID, o.RunID)
	}
	// Two gaps per wallet, none between wallets.
	require.Equal(t, []time.Duration{time.Second, time.Second, time.Second, time.Second}, sleeps)
}

func TestRunFailuresDoNotAbortBatch(t *testing.T) {
	exec := &recordingExecutor{
		failOn: map[string]error{"0xa/swap": clierr.New(clierr.CodeInsufficientBalance, "insufficient USDC balance")},
		skipOn: map[string]bool{"0xb/faucet": true},
	}
	var sleeps []time.Duration
	report := newTestRunner(exec, 0, &sleeps).Run(context.Background(), wallets("0xa", "0xb"), steps("faucet", "swap"))

	require.Len(t, exec.calls, 4)
	require.Equal(t, 2, report.Count(StatusSucceeded))
	require.Equal(t, 1, report.Count(StatusFailed))
	require.Equal(t, 1, report.Count(StatusSkipped))
	failed := report.Outcomes[1]
	require.Equal(t, StatusFailed, failed.Status)
	require.Equal(t, "insufficient_balance", failed.Code)
	require.Empty(t, sleeps)
}

func TestRunSingleHasNoDelay(t *testing.T) {
	exec := &recordingExecutor{}
	var sleeps []time.Duration
	report := newTestRunner(exec, time.Second, &sleeps).RunSingle(context.Background(), wallets("0xa", "0xb", "0xc"), steps("connect")[0])

	require.Equal(t, []string{"0xa/connect", "0xb/connect", "0xc/connect"}, exec.calls)
	require.Len(t, report.Outcomes, 3)
	require.Empty(t, sleeps)
}

func TestRunStopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &recordingExecutor{}
	exec.onCall = func() {
		if len(exec.calls) == 2 {
			cancel()
		}
	}
	var sleeps []time.Duration
	report := newTestRunner(exec, 0, &sleeps).Run(ctx, wallets("0xa", "0xb"), steps("faucet", "swap", "stake"))

	require.True(t, report.Canceled)
	require.Len(t, report.Outcomes, 2)
}

func TestSleepContextHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
