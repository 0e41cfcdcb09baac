package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	"github.com/ggonzalez94/creek-cli/internal/batch"
	"github.com/ggonzalez94/creek-cli/internal/cache"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution"
	"github.com/ggonzalez94/creek-cli/internal/execution/actionbuilder"
	"github.com/ggonzalez94/creek-cli/internal/execution/planner"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/model"
	"github.com/ggonzalez94/creek-cli/internal/policy"
	"github.com/ggonzalez94/creek-cli/internal/providers"
	"github.com/ggonzalez94/creek-cli/internal/providers/sui"
)

func (s *runtimeState) ensureCache() {
	if !s.settings.CacheEnabled || s.cache != nil {
		return
	}
	store, err := cache.Open(s.settings.CachePath, s.settings.CacheLockPath)
	if err != nil {
		s.logger.Warn("object cache unavailable", "error", err)
		return
	}
	if pruned, err := store.Prune(); err == nil && pruned > 0 {
		s.logger.Debug("pruned expired cache entries", "count", pruned)
	}
	s.cache = store
}

func (s *runtimeState) ensureLedger() (providers.Ledger, error) {
	if s.ledger != nil {
		return s.ledger, nil
	}
	s.ensureCache()
	var objects sui.ObjectCache
	if s.cache != nil {
		objects = s.cache
	}
	ledger, err := s.runner.newLedger(s.settings, objects)
	if err != nil {
		return nil, err
	}
	s.ledger = ledger
	return ledger, nil
}

func (s *runtimeState) ensureRegistrar() (providers.Registrar, error) {
	if s.registrar != nil {
		return s.registrar, nil
	}
	registrar, err := s.runner.newRegistrar(s.settings)
	if err != nil {
		return nil, err
	}
	s.registrar = registrar
	return registrar, nil
}

func (s *runtimeState) ensureStore() (*execution.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	store, err := execution.OpenStore(s.settings.ActionStorePath, s.settings.ActionLockPath)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "open run history", err)
	}
	s.store = store
	return store, nil
}

// ensureWallets loads keys once per process. Malformed keys become warnings.
func (s *runtimeState) ensureWallets() ([]*signer.Wallet, error) {
	if s.walletsLoaded {
		return s.wallets, nil
	}
	wallets, skipped, err := s.runner.loadWallets()
	if err != nil {
		return nil, err
	}
	for _, skip := range skipped {
		s.logger.Warn("private key skipped", "error", skip.Error())
		s.walletWarnings = append(s.walletWarnings, skip.Error())
	}
	if len(wallets) == 0 {
		return nil, clierr.New(clierr.CodeSigner, fmt.Sprintf("no valid private keys found in %s", signer.EnvPrivateKeys))
	}
	s.wallets = wallets
	s.walletsLoaded = true
	return wallets, nil
}

// composer builds an action registry. chain may be nil for metadata-only use.
func (s *runtimeState) composer(chain providers.ChainReader) *actionbuilder.Registry {
	return actionbuilder.New(planner.New(s.protocol, chain))
}

type batchRequest struct {
	actions  []string
	amounts  map[string]amount.Config
	single   bool
	planOnly bool
}

// executeBatch runs a request over every loaded wallet. Failures of single
// (wallet, action) pairs are reported in the returned report, not as err.
func (s *runtimeState) executeBatch(ctx context.Context, req batchRequest) (batch.Report, error) {
	if err := policy.CheckActionsAllowed(s.settings.EnableActions, req.actions); err != nil {
		return batch.Report{}, err
	}
	wallets, err := s.ensureWallets()
	if err != nil {
		return batch.Report{}, err
	}
	ledger, err := s.ensureLedger()
	if err != nil {
		return batch.Report{}, err
	}
	registrar, err := s.ensureRegistrar()
	if err != nil {
		return batch.Report{}, err
	}
	store, err := s.ensureStore()
	if err != nil {
		return batch.Report{}, err
	}

	service := execution.NewService(execution.ServiceOptions{
		Network:   s.settings.Network,
		Ledger:    ledger,
		Registrar: registrar,
		Composer:  s.composer(ledger),
		Store:     store,
		Packages:  s.protocol.Packages(),
		PlanOnly:  req.planOnly,
	})
	runner := batch.NewRunner(service, batch.Options{Delay: s.settings.ActionDelay, Logger: s.logger.Logger})

	signers := make([]signer.Signer, 0, len(wallets))
	for _, w := range wallets {
		signers = append(signers, w)
	}
	steps := make([]batch.Step, 0, len(req.actions))
	for _, action := range req.actions {
		steps = append(steps, batch.Step{Action: action, Amount: req.amounts[action]})
	}

	s.logger.Info("starting batch", "wallets", len(signers), "actions", strings.Join(req.actions, ","), "plan_only", req.planOnly)
	if req.single && len(steps) == 1 {
		return runner.RunSingle(ctx, signers, steps[0]), nil
	}
	return runner.Run(ctx, signers, steps), nil
}

func summarize(report batch.Report) model.RunSummary {
	return model.RunSummary{
		RunID:      report.ID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Wallets:    report.Wallets,
		Actions:    report.Steps,
		Succeeded:  report.Count(batch.StatusSucceeded),
		Failed:     report.Count(batch.StatusFailed),
		Skipped:    report.Count(batch.StatusSkipped),
		Planned:    report.Count(batch.StatusPlanned),
		Canceled:   report.Canceled,
		Outcomes:   report.Outcomes,
	}
}

// emitReport renders a batch summary. In strict mode a batch with failures
// still prints its summary and then fails with a partial-results code.
func (s *runtimeState) emitReport(commandPath string, report batch.Report) error {
	summary := summarize(report)
	warnings := append([]string(nil), s.walletWarnings...)
	if report.Canceled {
		warnings = append(warnings, "batch canceled before every wallet finished")
	}
	partial := summary.Failed > 0 || report.Canceled
	s.captureCommandDiagnostics(warnings, partial)
	if err := s.emitSuccess(commandPath, summary, warnings, s.providerStatuses(), partial); err != nil {
		return err
	}
	if report.Canceled {
		return clierr.New(clierr.CodeCanceled, "batch canceled")
	}
	if summary.Failed > 0 && s.settings.Strict {
		return clierr.New(clierr.CodePartialStrict, fmt.Sprintf("%d of %d wallet actions failed in strict mode", summary.Failed, len(report.Outcomes)))
	}
	return nil
}

func (s *runtimeState) providerStatuses() []model.ProviderStatus {
	var out []model.ProviderStatus
	if s.ledger != nil {
		out = append(out, model.ProviderStatus{Name: s.ledger.Info().Name, Status: "ok"})
	}
	if s.registrar != nil {
		out = append(out, model.ProviderStatus{Name: s.registrar.Info().Name, Status: "ok"})
	}
	return out
}

func (s *runtimeState) checkAllowed(action string) error {
	return policy.CheckActionAllowed(s.settings.EnableActions, action)
}
