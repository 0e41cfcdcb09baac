package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution"
	"github.com/ggonzalez94/creek-cli/internal/execution/actionbuilder"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/id"
	"github.com/ggonzalez94/creek-cli/internal/model"
	"github.com/ggonzalez94/creek-cli/internal/policy"
	"github.com/ggonzalez94/creek-cli/internal/schema"
)

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil, nil, false)
		},
	}
}

func actionNames() []string {
	defs := actionbuilder.Definitions()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	return names
}

func (s *runtimeState) newActionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List runnable actions and their default amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.composer(nil).Infos(), nil, nil, false)
		},
	}
}

func (s *runtimeState) newProvidersCommand() *cobra.Command {
	root := &cobra.Command{Use: "providers", Short: "Provider commands"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List the ledger and registration clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := s.ensureLedger()
			if err != nil {
				return err
			}
			registrar, err := s.ensureRegistrar()
			if err != nil {
				return err
			}
			infos := []model.ProviderInfo{ledger.Info(), registrar.Info()}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), infos, nil, nil, false)
		},
	}
	root.AddCommand(list)
	return root
}

func (s *runtimeState) newWalletsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wallets",
		Short: "List wallets loaded from PRIVATE_KEYS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wallets, err := s.ensureWallets()
			if err != nil {
				return err
			}
			items := make([]model.WalletInfo, 0, len(wallets))
			for i, w := range wallets {
				items = append(items, model.WalletInfo{Index: i + 1, Address: w.Address(), Scheme: w.Scheme().String()})
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), items, s.walletWarnings, nil, false)
		},
	}
}

func (s *runtimeState) newBalancesCommand() *cobra.Command {
	var all bool
	var assetsArg, walletArg string
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show asset balances of the first (or every) wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && walletArg != "" {
				return clierr.New(clierr.CodeUsage, "--all and --wallet are mutually exclusive")
			}
			wallets, err := s.ensureWallets()
			if err != nil {
				return err
			}
			switch {
			case walletArg != "":
				wallets, err = selectWallet(wallets, walletArg)
				if err != nil {
					return err
				}
			case !all:
				wallets = wallets[:1]
			}
			assets := s.protocol.Assets()
			if filter := splitCSV(assetsArg); len(filter) > 0 {
				assets = assets[:0]
				for _, name := range filter {
					asset, ok := s.protocol.AssetBySymbol(name)
					if !ok {
						asset, ok = s.protocol.AssetByCoinType(name)
					}
					if !ok {
						return clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown asset %q", name))
					}
					assets = append(assets, asset)
				}
			}
			ledger, err := s.ensureLedger()
			if err != nil {
				return err
			}

			start := time.Now()
			var (
				items    []model.Balance
				warnings = append([]string(nil), s.walletWarnings...)
				partial  bool
				lastErr  error
			)
			for _, w := range wallets {
				for _, asset := range assets {
					value, err := ledger.Balance(cmd.Context(), w.Address(), asset.CoinType)
					if err != nil {
						partial = true
						lastErr = err
						warnings = append(warnings, fmt.Sprintf("%s %s: %v", id.ShortAddress(w.Address()), asset.Symbol, err))
						continue
					}
					items = append(items, model.Balance{
						Wallet:    w.Address(),
						Asset:     asset.Symbol,
						CoinType:  asset.CoinType,
						BaseUnits: value.String(),
						Amount:    id.FormatUnits(value, asset.Decimals),
					})
				}
			}
			status := []model.ProviderStatus{{Name: ledger.Info().Name, Status: statusFromErr(lastErr), LatencyMS: time.Since(start).Milliseconds()}}
			if len(items) == 0 && lastErr != nil {
				s.captureCommandDiagnostics(warnings, true)
				return lastErr
			}
			if partial && s.settings.Strict {
				s.captureCommandDiagnostics(warnings, true)
				return clierr.New(clierr.CodePartialStrict, "partial balances returned in strict mode")
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), items, warnings, status, partial)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show balances for every wallet")
	cmd.Flags().StringVar(&assetsArg, "assets", "", "Limit to these asset symbols or coin types (comma-separated)")
	cmd.Flags().StringVar(&walletArg, "wallet", "", "Show balances for one loaded wallet address")
	return cmd
}

func selectWallet(wallets []*signer.Wallet, address string) ([]*signer.Wallet, error) {
	for _, w := range wallets {
		if id.SameAddress(w.Address(), address) {
			return []*signer.Wallet{w}, nil
		}
	}
	return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("wallet %s is not loaded", address))
}

func (s *runtimeState) newRunCommand() *cobra.Command {
	var mode, value string
	var planOnly bool
	cmd := &cobra.Command{
		Use:       "run <action>",
		Short:     "Run one action for every wallet",
		Args:      cobra.ExactArgs(1),
		ValidArgs: actionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, ok := actionbuilder.Lookup(args[0])
			if !ok {
				return clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown action %q", args[0]))
			}
			if err := policy.CheckActionAllowed(s.settings.EnableActions, def.Name); err != nil {
				return err
			}
			amounts := map[string]amount.Config{}
			if def.NeedsAmount {
				var flags []string
				if cmd.Flags().Changed("mode") || cmd.Flags().Changed("value") {
					flags = append(flags, def.Name+"="+mode+":"+value)
				}
				resolved, err := s.amountConfigs([]string{def.Name}, flags)
				if err != nil {
					return err
				}
				amounts = resolved
			} else if cmd.Flags().Changed("mode") || cmd.Flags().Changed("value") {
				return clierr.New(clierr.CodeUsage, fmt.Sprintf("action %q does not take an amount", def.Name))
			}
			report, err := s.executeBatch(cmd.Context(), batchRequest{
				actions:  []string{def.Name},
				amounts:  amounts,
				single:   true,
				planOnly: planOnly,
			})
			if err != nil {
				return err
			}
			return s.emitReport(trimRootPath(cmd.CommandPath()), report)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "default", "Amount mode: default, custom, percent, random")
	cmd.Flags().StringVar(&value, "value", "", "Amount value (human units for custom, 50% or 0.5 for percent)")
	cmd.Flags().BoolVar(&planOnly, "plan-only", false, "Compose and record transactions without submitting them")
	return cmd
}

func (s *runtimeState) newRunAllCommand() *cobra.Command {
	var actionsArg string
	var amountFlags []string
	var planOnly bool
	cmd := &cobra.Command{
		Use:   "run-all",
		Short: "Run a sequence of actions for every wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actions, err := actionbuilder.ParseActions(actionsArg)
			if err != nil {
				return err
			}
			amounts, err := s.amountConfigs(actions, amountFlags)
			if err != nil {
				return err
			}
			report, err := s.executeBatch(cmd.Context(), batchRequest{actions: actions, amounts: amounts, planOnly: planOnly})
			if err != nil {
				return err
			}
			return s.emitReport(trimRootPath(cmd.CommandPath()), report)
		},
	}
	cmd.Flags().StringVar(&actionsArg, "actions", "all", "Actions to run in order (comma-separated, or all)")
	cmd.Flags().StringArrayVar(&amountFlags, "amount", nil, "Per-action amount, e.g. swap=percent:50% (repeatable)")
	cmd.Flags().BoolVar(&planOnly, "plan-only", false, "Compose and record transactions without submitting them")
	return cmd
}

func (s *runtimeState) newHistoryCommand() *cobra.Command {
	root := &cobra.Command{Use: "history", Short: "Inspect recorded wallet actions"}

	var status, action, wallet, runID string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded actions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.ensureStore()
			if err != nil {
				return err
			}
			filter := execution.Filter{
				Status: execution.ActionStatus(strings.ToLower(strings.TrimSpace(status))),
				Action: actionbuilder.Normalize(action),
				Wallet: strings.TrimSpace(wallet),
				RunID:  strings.TrimSpace(runID),
				Limit:  limit,
			}
			items, err := store.List(filter)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), items, nil, nil, false)
		},
	}
	list.Flags().StringVar(&status, "status", "", "Filter by status (planned, running, completed, failed, skipped)")
	list.Flags().StringVar(&action, "action", "", "Filter by action name")
	list.Flags().StringVar(&wallet, "wallet", "", "Filter by wallet address")
	list.Flags().StringVar(&runID, "run-id", "", "Filter by batch run id")
	list.Flags().IntVar(&limit, "limit", 50, "Maximum records to return")

	show := &cobra.Command{
		Use:   "show <action-id>",
		Short: "Show one recorded action with its commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.ensureStore()
			if err != nil {
				return err
			}
			item, err := store.Get(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), item, nil, nil, false)
		},
	}

	root.AddCommand(list)
	root.AddCommand(show)
	return root
}

func (s *runtimeState) newCacheCommand() *cobra.Command {
	root := &cobra.Command{Use: "cache", Short: "Manage the shared object cache"}
	var prefix string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cached object metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.ensureCache()
			if s.cache == nil {
				return clierr.New(clierr.CodeUsage, "object cache is disabled")
			}
			removed, err := s.cache.Delete(prefix)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "clear cache", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{"removed": removed}, nil, nil, false)
		},
	}
	clearCmd.Flags().StringVar(&prefix, "prefix", "", "Only delete keys with this prefix")
	root.AddCommand(clearCmd)
	return root
}
