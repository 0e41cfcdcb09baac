// Package batch runs actions across wallets: wallets outer, steps inner, one
// independent outcome per pair.
package batch

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/id"
)

const DefaultDelay = time.Second

type Status string

const (
	StatusSucceeded Status = "success"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusPlanned   Status = "planned"
)

// Step is one action with its amount policy.
type Step struct {
	Action string
	Amount amount.Config
	RunID  string
}

// Outcome is the result of one (wallet, step) pair.
type Outcome struct {
	RunID    string        `json:"run_id"`
	ActionID string        `json:"action_id,omitempty"`
	Wallet   string        `json:"wallet"`
	Action   string        `json:"action"`
	Status   Status        `json:"status"`
	Asset    string        `json:"asset,omitempty"`
	Amount   string        `json:"amount,omitempty"`
	Digest   string        `json:"digest,omitempty"`
	Message  string        `json:"message,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Commands []string      `json:"commands,omitempty"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"error_code,omitempty"`
	Elapsed  int64         `json:"elapsed_ms"`
	Duration time.Duration `json:"-"`
	Err      error         `json:"-"`
}

// Failed builds an outcome for an error, keeping the typed code when present.
func Failed(wallet string, step Step, err error) Outcome {
	out := Outcome{RunID: step.RunID, Wallet: wallet, Action: step.Action, Status: StatusFailed, Err: err}
	if err != nil {
		out.Error = err.Error()
		out.Code = clierr.CodeOf(err).String()
	}
	return out
}

// Executor runs one step for one wallet. It reports failures in the outcome
// and never panics or returns early for the batch.
type Executor interface {
	Execute(ctx context.Context, wallet signer.Signer, step Step) Outcome
}

type Options struct {
	Delay  time.Duration
	Logger *slog.Logger
}

type Runner struct {
	exec   Executor
	delay  time.Duration
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

func NewRunner(exec Executor, opts Options) *Runner {
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{exec: exec, delay: delay, logger: logger, sleep: sleepContext, now: time.Now}
}

// Report collects every outcome of a batch in execution order.
type Report struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Wallets    int       `json:"wallets"`
	Steps      []string  `json:"steps"`
	Outcomes   []Outcome `json:"outcomes"`
	Canceled   bool      `json:"canceled,omitempty"`
}

func (r Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Run executes every step for every wallet. Successive steps of the same
// wallet are separated by the configured delay; wallets follow each other
// without a pause. Cancelling ctx stops the batch before the next step.
func (r *Runner) Run(ctx context.Context, wallets []signer.Signer, steps []Step) Report {
	return r.run(ctx, wallets, steps, r.delay)
}

// RunSingle executes one step for every wallet with no delay.
func (r *Runner) RunSingle(ctx context.Context, wallets []signer.Signer, step Step) Report {
	return r.run(ctx, wallets, []Step{step}, 0)
}

func (r *Runner) run(ctx context.Context, wallets []signer.Signer, steps []Step, delay time.Duration) Report {
	report := Report{
		ID:        uuid.NewString(),
		StartedAt: r.now().UTC(),
		Wallets:   len(wallets),
		Steps:     make([]string, 0, len(steps)),
		Outcomes:  make([]Outcome, 0, len(wallets)*len(steps)),
	}
	for _, step := range steps {
		report.Steps = append(report.Steps, step.Action)
	}
	logger := r.logger.With("run_id", report.ID)

walletLoop:
	for i, wallet := range wallets {
		logger.Info("processing wallet", "index", i+1, "of", len(wallets), "wallet", wallet.Address())
		for j, step := range steps {
			if ctx.Err() != nil {
				report.Canceled = true
				break walletLoop
			}
			step.RunID = report.ID
			started := r.now()
			outcome := r.exec.Execute(ctx, wallet, step)
			outcome.RunID = report.ID
			if outcome.Duration == 0 {
				outcome.Duration = r.now().Sub(started)
			}
			outcome.Elapsed = outcome.Duration.Milliseconds()
			report.Outcomes = append(report.Outcomes, outcome)
			logOutcome(logger, outcome)

			if delay > 0 && j < len(steps)-1 {
				if err := r.sleep(ctx, delay); err != nil {
					report.Canceled = true
					break walletLoop
				}
			}
		}
	}
	report.FinishedAt = r.now().UTC()
	return report
}

func logOutcome(logger *slog.Logger, o Outcome) {
	attrs := []any{
		"wallet", id.ShortAddress(o.Wallet),
		"action", o.Action,
		"outcome", string(o.Status),
	}
	if o.Amount != "" {
		attrs = append(attrs, "amount", o.Amount)
	}
	if o.Digest != "" {
		attrs = append(attrs, "digest", id.ShortDigest(o.Digest))
	}
	for _, w := range o.Warnings {
		logger.Warn("amount policy", append(attrs, "warning", w)...)
	}
	switch o.Status {
	case StatusFailed:
		logger.Error("action failed", append(attrs, "error", o.Error, "code", o.Code)...)
	case StatusSkipped:
		logger.Warn("action skipped", append(attrs, "reason", o.Message)...)
	default:
		logger.Info("action completed", attrs...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
