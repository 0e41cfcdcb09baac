package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/creek-cli/internal/amount"
	"github.com/ggonzalez94/creek-cli/internal/batch"
	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/actionbuilder"
	"github.com/ggonzalez94/creek-cli/internal/id"
)

func (s *runtimeState) newInteractiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Menu-driven mode: pick actions and amounts at a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !s.runner.isTerminal() {
				return clierr.New(clierr.CodeUsage, "interactive mode needs a terminal; use run or run-all instead")
			}
			if _, err := s.ensureWallets(); err != nil {
				return err
			}
			p := &prompter{in: bufio.NewScanner(s.runner.stdin), out: s.runner.stdout}
			return s.interactiveLoop(cmd.Context(), p)
		},
	}
}

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// ask prints a question and returns the next trimmed line. io.EOF means the
// input is exhausted.
func (p *prompter) ask(question string) (string, error) {
	p.printf("%s ", question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (s *runtimeState) interactiveLoop(ctx context.Context, p *prompter) error {
	defs := actionbuilder.Definitions()
	runAllChoice := len(defs) + 1
	for {
		if ctx.Err() != nil {
			return clierr.Wrap(clierr.CodeCanceled, "interactive session canceled", ctx.Err())
		}
		s.printBanner(ctx, p)
		for i, def := range defs {
			p.printf("%2d. %s\n", i+1, def.Title)
		}
		p.printf("%2d. Run all (choose actions)\n", runAllChoice)
		p.printf("%2d. Exit\n", 0)

		answer, err := p.ask("Select an action to run across all wallets:")
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		choice, convErr := strconv.Atoi(answer)
		switch {
		case convErr != nil || choice < 0 || choice > runAllChoice:
			p.printf("Unknown choice %q.\n", answer)
			continue
		case choice == 0:
			p.printf("Exiting.\n")
			return nil
		case choice == runAllChoice:
			err = s.interactiveRunAll(ctx, p, defs)
		default:
			err = s.interactiveSingle(ctx, p, defs[choice-1])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if _, ok := clierr.As(err); !ok {
				return err
			}
			p.printf("Error: %v\n", err)
		}
		if _, err := p.ask("\nPress ENTER to return to the menu..."); err == io.EOF {
			return nil
		}
	}
}

func (s *runtimeState) printBanner(ctx context.Context, p *prompter) {
	p.printf("\nLoaded %d wallets.\n", len(s.wallets))
	if len(s.wallets) == 0 {
		return
	}
	first := s.wallets[0].Address()
	ledger, err := s.ensureLedger()
	if err != nil {
		p.printf("Failed to fetch SUI balance: %v\n", err)
		return
	}
	balance, err := ledger.Balance(ctx, first, s.protocol.SUI.CoinType)
	if err != nil {
		p.printf("Failed to fetch SUI balance: %v\n", err)
		return
	}
	p.printf("First wallet (%s) SUI balance: %s\n", id.ShortAddress(first), id.FormatUnits(balance, s.protocol.SUI.Decimals))
}

func (s *runtimeState) interactiveSingle(ctx context.Context, p *prompter, def actionbuilder.Definition) error {
	if err := s.checkInteractivePolicy([]string{def.Name}); err != nil {
		return err
	}
	amounts := map[string]amount.Config{}
	if def.NeedsAmount {
		cfg, ok, err := s.promptAmount(p, def)
		if err != nil {
			return err
		}
		if !ok {
			p.printf("Action cancelled.\n")
			return nil
		}
		amounts[def.Name] = cfg
	}
	p.printf("\n--- Running %s for %d wallets ---\n", def.Title, len(s.wallets))
	report, err := s.executeBatch(ctx, batchRequest{actions: []string{def.Name}, amounts: amounts, single: true})
	if err != nil {
		return err
	}
	printReport(p, report)
	p.printf("--- %s complete ---\n", def.Title)
	return nil
}

func (s *runtimeState) interactiveRunAll(ctx context.Context, p *prompter, defs []actionbuilder.Definition) error {
	answer, err := p.ask("Select actions to run in sequence (numbers separated by commas, or all):")
	if err != nil {
		return err
	}
	var names []string
	if strings.EqualFold(answer, "all") {
		names = actionbuilder.RunAllOrder()
	} else {
		seen := map[int]bool{}
		for _, part := range strings.Split(answer, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 1 || n > len(defs) {
				if strings.TrimSpace(part) == "" {
					continue
				}
				return clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown action number %q", strings.TrimSpace(part)))
			}
			if seen[n] {
				continue
			}
			seen[n] = true
			names = append(names, defs[n-1].Name)
		}
	}
	if len(names) == 0 {
		p.printf("No actions selected.\n")
		return nil
	}
	if err := s.checkInteractivePolicy(names); err != nil {
		return err
	}

	amounts := map[string]amount.Config{}
	for _, name := range names {
		def, _ := actionbuilder.Lookup(name)
		if !def.NeedsAmount {
			continue
		}
		p.printf("\nConfiguring amount for: %s\n", def.Title)
		cfg, ok, err := s.promptAmount(p, def)
		if err != nil {
			return err
		}
		if !ok {
			p.printf("Action cancelled.\n")
			return nil
		}
		amounts[name] = cfg
	}

	p.printf("\nStarting RUN ALL with your selected actions and amounts...\n")
	report, err := s.executeBatch(ctx, batchRequest{actions: names, amounts: amounts})
	if err != nil {
		return err
	}
	printReport(p, report)
	return nil
}

func (s *runtimeState) checkInteractivePolicy(actions []string) error {
	for _, action := range actions {
		if err := s.checkAllowed(action); err != nil {
			return err
		}
	}
	return nil
}

// promptAmount offers the amount presets. ok is false when the user cancels.
func (s *runtimeState) promptAmount(p *prompter, def actionbuilder.Definition) (amount.Config, bool, error) {
	fallback := s.composer(nil).DefaultAmount(def.Name)
	symbol := def.Asset
	decimals := int32(9)
	if asset, ok := s.protocol.AssetBySymbol(def.Asset); ok {
		decimals = asset.Decimals
	}
	presets := amount.Presets()
	for i, preset := range presets {
		label := string(preset)
		switch preset {
		case amount.PresetDefault:
			label = fmt.Sprintf("Default (%s %s)", id.FormatUnits(fallback, decimals), symbol)
		case amount.PresetCustom:
			label = "Custom amount"
		case amount.PresetRandom:
			label = "Random (20% - 100%)"
		case amount.PresetCancel:
			label = "Cancel"
		}
		p.printf("  %d. %s\n", i+1, label)
	}
	for {
		answer, err := p.ask(fmt.Sprintf("Choose amount for %s:", symbol))
		if err != nil {
			return amount.Config{}, false, err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr != nil || n < 1 || n > len(presets) {
			p.printf("Please choose 1-%d.\n", len(presets))
			continue
		}
		preset := presets[n-1]
		custom := ""
		if preset == amount.PresetCustom {
			custom, err = p.ask(fmt.Sprintf("Enter amount in %s:", symbol))
			if err != nil {
				return amount.Config{}, false, err
			}
		}
		cfg, ok, err := amount.FromPreset(preset, custom, fallback, nil)
		if err != nil {
			p.printf("Invalid amount: %v\n", err)
			continue
		}
		return cfg, ok, nil
	}
}

func printReport(p *prompter, report batch.Report) {
	for _, o := range report.Outcomes {
		line := fmt.Sprintf("[%s] %-13s %-8s", id.ShortAddress(o.Wallet), o.Action, o.Status)
		switch {
		case o.Digest != "":
			line += " tx " + o.Digest
		case o.Error != "":
			line += " " + o.Error
		case o.Message != "":
			line += " " + o.Message
		}
		p.printf("%s\n", line)
	}
	summary := summarize(report)
	p.printf("succeeded=%d failed=%d skipped=%d\n", summary.Succeeded, summary.Failed, summary.Skipped)
}
