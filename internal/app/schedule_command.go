package app

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/actionbuilder"
	"github.com/ggonzalez94/creek-cli/internal/schedule"
)

func (s *runtimeState) newScheduleCommand() *cobra.Command {
	var cronSpec, actionsArg string
	var amountFlags []string
	var planOnly, runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Repeat run-all on a cron schedule (seconds field first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := strings.TrimSpace(cronSpec)
			if spec == "" {
				spec = s.settings.ScheduleCron
			}
			if spec == "" {
				return clierr.New(clierr.CodeUsage, "--cron is required (or set schedule.cron in the config file)")
			}
			if err := schedule.Validate(spec); err != nil {
				return err
			}
			raw := actionsArg
			if !cmd.Flags().Changed("actions") && len(s.settings.ScheduleActions) > 0 {
				raw = strings.Join(s.settings.ScheduleActions, ",")
			}
			actions, err := actionbuilder.ParseActions(raw)
			if err != nil {
				return err
			}
			amounts, err := s.amountConfigs(actions, amountFlags)
			if err != nil {
				return err
			}
			if _, err := s.ensureWallets(); err != nil {
				return err
			}

			req := batchRequest{actions: actions, amounts: amounts, planOnly: planOnly}
			var runs, failedRuns int
			job := func(ctx context.Context) {
				runs++
				report, err := s.executeBatch(ctx, req)
				if err != nil {
					failedRuns++
					s.logger.Error("scheduled batch not started", "error", err)
					return
				}
				summary := summarize(report)
				s.logger.Info("scheduled batch finished",
					"run_id", summary.RunID,
					"succeeded", summary.Succeeded,
					"failed", summary.Failed,
					"skipped", summary.Skipped,
				)
			}

			ctx := cmd.Context()
			if runNow {
				job(ctx)
			}
			scheduler := schedule.New(s.logger.Logger)
			if err := scheduler.Add(ctx, "run-all", spec, job); err != nil {
				return err
			}
			if next, err := schedule.Next(spec, time.Now()); err == nil {
				s.logger.Info("next scheduled run", "at", next.Format(time.RFC3339))
			}
			if err := scheduler.Run(ctx); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
				"cron":        spec,
				"actions":     actions,
				"runs":        runs,
				"failed_runs": failedRuns,
			}, nil, nil, false)
		},
	}
	cmd.Flags().StringVar(&cronSpec, "cron", "", `Six-field cron expression, e.g. "0 0 9 * * *", or @every 6h`)
	cmd.Flags().StringVar(&actionsArg, "actions", "all", "Actions to run in order (comma-separated, or all)")
	cmd.Flags().StringArrayVar(&amountFlags, "amount", nil, "Per-action amount, e.g. swap=percent:50% (repeatable)")
	cmd.Flags().BoolVar(&planOnly, "plan-only", false, "Compose and record transactions without submitting them")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run once immediately before waiting for the schedule")
	return cmd
}
