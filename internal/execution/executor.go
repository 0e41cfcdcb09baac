package execution

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	"github.com/ggonzalez94/creek-cli/internal/batch"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/id"
	"github.com/ggonzalez94/creek-cli/internal/providers"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

// Composer turns an action name and amount policy into a plan for one wallet.
type Composer interface {
	Compose(ctx context.Context, owner, action string, cfg amount.Config) (Plan, error)
}

type ServiceOptions struct {
	Network   string
	Ledger    providers.Ledger
	Registrar providers.Registrar
	Composer  Composer
	Store     *Store
	// Packages limits the Move packages a program may call. Empty allows any.
	Packages []string
	// PlanOnly composes and records programs without submitting them.
	PlanOnly bool
}

// Service executes a single (wallet, action) pair and records the result.
type Service struct {
	network   string
	ledger    providers.Ledger
	registrar providers.Registrar
	composer  Composer
	store     *Store
	packages  map[string]bool
	planOnly  bool
	now       func() time.Time
}

func NewService(opts ServiceOptions) *Service {
	packages := map[string]bool{}
	for _, pkg := range opts.Packages {
		if normalized, err := id.NormalizeAddress(pkg); err == nil {
			packages[normalized] = true
		}
	}
	network := opts.Network
	if network == "" {
		network = registry.NetworkTestnet
	}
	return &Service{
		network:   network,
		ledger:    opts.Ledger,
		registrar: opts.Registrar,
		composer:  opts.Composer,
		store:     opts.Store,
		packages:  packages,
		planOnly:  opts.PlanOnly,
		now:       time.Now,
	}
}

// Execute never returns an error: every failure is captured in the outcome.
func (s *Service) Execute(ctx context.Context, wallet signer.Signer, step batch.Step) batch.Outcome {
	started := s.now()
	record := NewAction(NewActionID(), step.Action, s.network, wallet.Address())
	record.RunID = step.RunID
	record.AmountMode = step.Amount.Mode().String()

	var outcome batch.Outcome
	if step.Action == registry.ActionConnect {
		outcome = s.connect(ctx, &record, wallet, step)
	} else {
		outcome = s.submit(ctx, &record, wallet, step)
	}
	outcome.ActionID = record.ActionID
	outcome.Duration = s.now().Sub(started)
	s.save(&record, &outcome)
	return outcome
}

func (s *Service) connect(ctx context.Context, record *Action, wallet signer.Signer, step batch.Step) batch.Outcome {
	stepRecord := ActionStep{StepID: stepID(0), Type: StepTypeRegistration, Status: StepStatusPending, Description: "register wallet"}
	if s.registrar == nil {
		return s.fail(record, wallet, step, clierr.New(clierr.CodeInternal, "registration client is not configured"))
	}
	reg, err := s.registrar.Connect(ctx, wallet.Address())
	if err != nil {
		stepRecord.Status = StepStatusFailed
		record.Steps = append(record.Steps, stepRecord)
		return s.fail(record, wallet, step, err)
	}
	stepRecord.Status = StepStatusConfirmed
	record.Steps = append(record.Steps, stepRecord)
	record.Status = ActionStatusCompleted
	message := strings.TrimSpace(reg.Message)
	if message == "" {
		message = "OK"
	}
	record.Metadata = map[string]any{"message": message, "code": string(reg.Code)}
	return batch.Outcome{
		RunID:   step.RunID,
		Wallet:  wallet.Address(),
		Action:  step.Action,
		Status:  batch.StatusSucceeded,
		Message: message,
	}
}

func (s *Service) submit(ctx context.Context, record *Action, wallet signer.Signer, step batch.Step) batch.Outcome {
	if s.composer == nil {
		return s.fail(record, wallet, step, clierr.New(clierr.CodeInternal, "action composer is not configured"))
	}
	plan, err := s.composer.Compose(ctx, wallet.Address(), step.Action, step.Amount)
	if err != nil {
		return s.fail(record, wallet, step, err)
	}
	record.Asset = plan.Asset
	record.Warnings = append(record.Warnings, plan.Warnings...)
	if plan.Amount != nil {
		record.Amount = plan.Amount.String()
	}
	outcome := batch.Outcome{
		RunID:    step.RunID,
		Wallet:   wallet.Address(),
		Action:   step.Action,
		Asset:    plan.Asset,
		Amount:   record.Amount,
		Warnings: append([]string(nil), plan.Warnings...),
		Commands: plan.Program.Labels(),
	}
	if plan.Skipped {
		record.Status = ActionStatusSkipped
		record.SkipReason = plan.SkipReason
		outcome.Status = batch.StatusSkipped
		outcome.Message = plan.SkipReason
		return outcome
	}

	record.Steps = plan.Steps()
	if err := validateProgramPolicy(plan, s.packages); err != nil {
		return s.failWith(record, outcome, err)
	}
	if s.planOnly {
		record.Status = ActionStatusPlanned
		outcome.Status = batch.StatusPlanned
		return outcome
	}
	if s.ledger == nil {
		return s.failWith(record, outcome, clierr.New(clierr.CodeInternal, "ledger client is not configured"))
	}

	record.Status = ActionStatusRunning
	s.save(record, &outcome)
	receipt, err := s.ledger.Submit(ctx, wallet, plan.Program)
	if err != nil {
		markSteps(record, StepStatusFailed)
		return s.failWith(record, outcome, err)
	}
	markSteps(record, StepStatusConfirmed)
	record.Status = ActionStatusCompleted
	record.TxDigest = receipt.Digest
	if receipt.GasUsed != nil {
		record.GasUsed = receipt.GasUsed.String()
	}
	outcome.Status = batch.StatusSucceeded
	outcome.Digest = receipt.Digest
	return outcome
}

func (s *Service) fail(record *Action, wallet signer.Signer, step batch.Step, err error) batch.Outcome {
	return s.failWith(record, batch.Outcome{RunID: step.RunID, Wallet: wallet.Address(), Action: step.Action}, err)
}

func (s *Service) failWith(record *Action, outcome batch.Outcome, err error) batch.Outcome {
	record.Status = ActionStatusFailed
	record.Error = err.Error()
	record.ErrorCode = clierr.CodeOf(err).String()
	outcome.Status = batch.StatusFailed
	outcome.Err = err
	outcome.Error = record.Error
	outcome.Code = record.ErrorCode
	return outcome
}

func (s *Service) save(record *Action, outcome *batch.Outcome) {
	if s.store == nil {
		return
	}
	record.Touch()
	if err := s.store.Save(*record); err != nil {
		warning := "run history not saved: " + err.Error()
		if !slices.Contains(outcome.Warnings, warning) {
			outcome.Warnings = append(outcome.Warnings, warning)
		}
	}
}

func markSteps(record *Action, status StepStatus) {
	for i := range record.Steps {
		record.Steps[i].Status = status
	}
}
