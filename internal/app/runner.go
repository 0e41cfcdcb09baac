package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ggonzalez94/creek-cli/internal/cache"
	"github.com/ggonzalez94/creek-cli/internal/config"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/httpx"
	"github.com/ggonzalez94/creek-cli/internal/logging"
	"github.com/ggonzalez94/creek-cli/internal/model"
	"github.com/ggonzalez94/creek-cli/internal/out"
	"github.com/ggonzalez94/creek-cli/internal/providers"
	"github.com/ggonzalez94/creek-cli/internal/providers/creek"
	"github.com/ggonzalez94/creek-cli/internal/providers/sui"
	"github.com/ggonzalez94/creek-cli/internal/registry"
	"github.com/ggonzalez94/creek-cli/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	now    func() time.Time

	loadWallets  func() ([]*signer.Wallet, []error, error)
	newLedger    func(settings config.Settings, objects sui.ObjectCache) (providers.Ledger, error)
	newRegistrar func(settings config.Settings) (providers.Registrar, error)
	isTerminal   func() bool
}

func NewRunner() *Runner {
	r := NewRunnerWithWriters(os.Stdout, os.Stderr)
	r.stdin = os.Stdin
	r.isTerminal = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	}
	return r
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout:       stdout,
		stderr:       stderr,
		stdin:        strings.NewReader(""),
		now:          time.Now,
		loadWallets:  signer.LoadWalletsFromEnv,
		newLedger:    defaultLedger,
		newRegistrar: defaultRegistrar,
		isTerminal:   func() bool { return false },
	}
}

func defaultLedger(settings config.Settings, objects sui.ObjectCache) (providers.Ledger, error) {
	client := httpx.New(settings.Timeout, 0)
	return sui.New(settings.RPCURL, sui.Options{
		HTTPClient:   client.HTTPClient(),
		UserAgent:    client.UserAgent(),
		RateLimit:    settings.RPCRateLimit,
		GasBudgetCap: settings.GasBudgetCap,
		Cache:        objects,
	})
}

// The registration POST is never retried.
func defaultRegistrar(settings config.Settings) (providers.Registrar, error) {
	return creek.New(httpx.New(settings.Timeout, 0), settings.APIURL)
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	root     *cobra.Command

	logger    *logging.Logger
	cache     *cache.Store
	store     *execution.Store
	ledger    providers.Ledger
	registrar providers.Registrar
	protocol  registry.Protocol

	wallets        []*signer.Wallet
	walletWarnings []string
	walletsLoaded  bool

	lastCommand  string
	lastWarnings []string
	lastPartial  bool
}

func (r *Runner) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := &runtimeState{runner: r, protocol: registry.Testnet()}
	root := state.newRootCommand()
	state.root = root
	state.resetCommandDiagnostics()
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.ExecuteContext(ctx)
	err = normalizeRunError(err)
	if err != nil {
		state.renderError("", err, state.lastWarnings, state.lastPartial)
	}
	state.close()
	if err == nil {
		return 0
	}
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Multi-wallet Creek testnet automation CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.lastCommand = trimRootPath(cmd.CommandPath())

			if s.logger == nil {
				logger, err := logging.Setup(logging.Options{
					Level:      settings.LogLevel,
					Format:     settings.LogFormat,
					File:       settings.LogFile,
					MaxSizeMB:  settings.LogMaxSizeMB,
					MaxBackups: settings.LogMaxBackups,
					MaxAgeDays: settings.LogMaxAgeDays,
					Stderr:     s.runner.stderr,
				})
				if err != nil {
					return clierr.Wrap(clierr.CodeUsage, "configure logging", err)
				}
				s.logger = logger
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated)")
	cmd.PersistentFlags().BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	cmd.PersistentFlags().StringVar(&s.flags.EnableActions, "enable-actions", "", "Allowlist action names (comma-separated)")
	cmd.PersistentFlags().BoolVar(&s.flags.Strict, "strict", false, "Fail when any wallet action fails")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Request timeout for ledger and API calls")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries for read-only HTTP requests")
	cmd.PersistentFlags().StringVar(&s.flags.RPCURL, "rpc-url", "", "Sui JSON-RPC endpoint")
	cmd.PersistentFlags().StringVar(&s.flags.APIURL, "api-url", "", "Creek API base url")
	cmd.PersistentFlags().StringVar(&s.flags.ActionDelay, "action-delay", "", "Pause between successive actions of one wallet")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&s.flags.LogFormat, "log-format", "", "Log format: text or json")
	cmd.PersistentFlags().StringVar(&s.flags.LogFile, "log-file", "", "Also write logs to this rotated file")
	cmd.PersistentFlags().BoolVar(&s.flags.NoCache, "no-cache", false, "Disable the shared object cache")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")

	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(s.newActionsCommand())
	cmd.AddCommand(s.newProvidersCommand())
	cmd.AddCommand(s.newWalletsCommand())
	cmd.AddCommand(s.newBalancesCommand())
	cmd.AddCommand(s.newRunCommand())
	cmd.AddCommand(s.newRunAllCommand())
	cmd.AddCommand(s.newScheduleCommand())
	cmd.AddCommand(s.newHistoryCommand())
	cmd.AddCommand(s.newCacheCommand())
	cmd.AddCommand(s.newInteractiveCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) close() {
	if s.ledger != nil {
		if closer, ok := s.ledger.(interface{ Close() }); ok {
			closer.Close()
		}
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string, providers []model.ProviderStatus, partial bool) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Network:   s.settings.Network,
			Providers: providers,
			Partial:   partial,
		},
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(commandPath string, err error, warnings []string, partial bool) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	code := clierr.ExitCode(err)
	message := err.Error()
	typ := clierr.CodeInternal.String()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
		typ = cErr.Code.String()
	}

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Data:    []any{},
		Error: &model.ErrorBody{
			Code:    code,
			Type:    typ,
			Message: message,
		},
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Network:   settings.Network,
			Partial:   partial,
		},
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		norm := strings.ToLower(strings.TrimSpace(part))
		if norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func statusFromErr(err error) string {
	if err == nil {
		return "ok"
	}
	switch clierr.CodeOf(err) {
	case clierr.CodeAuth:
		return "auth_error"
	case clierr.CodeRateLimited:
		return "rate_limited"
	case clierr.CodeExternal:
		return "unavailable"
	default:
		return "error"
	}
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (s *runtimeState) resetCommandDiagnostics() {
	s.lastWarnings = nil
	s.lastPartial = false
}

func (s *runtimeState) captureCommandDiagnostics(warnings []string, partial bool) {
	if len(warnings) == 0 {
		s.lastWarnings = nil
	} else {
		s.lastWarnings = append([]string(nil), warnings...)
	}
	s.lastPartial = partial
}
