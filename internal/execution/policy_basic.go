package execution

import (
	"fmt"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
)

// Ledger limits for a single programmable transaction.
const (
	maxProgramCommands = 1024
	maxProgramInputs   = 2048
)

// validateProgramPolicy refuses empty or oversized programs and calls to
// packages outside the allowlist.
func validateProgramPolicy(plan Plan, packages map[string]bool) error {
	if plan.Program.Empty() {
		return clierr.New(clierr.CodeInternal, fmt.Sprintf("%s produced an empty program", plan.Action))
	}
	commands := plan.Program.Commands()
	if len(commands) > maxProgramCommands {
		return clierr.New(clierr.CodeBlocked, fmt.Sprintf("%s program has %d commands; ledger limit is %d", plan.Action, len(commands), maxProgramCommands))
	}
	if n := len(plan.Program.Inputs()); n > maxProgramInputs {
		return clierr.New(clierr.CodeBlocked, fmt.Sprintf("%s program has %d inputs; ledger limit is %d", plan.Action, n, maxProgramInputs))
	}
	if plan.Amount == nil || plan.Amount.Sign() <= 0 {
		return clierr.New(clierr.CodeBlocked, fmt.Sprintf("%s program has no positive amount", plan.Action))
	}
	if len(packages) == 0 {
		return nil
	}
	for _, cmd := range commands {
		if cmd.Kind != ptb.CommandMoveCall || cmd.MoveCall == nil {
			continue
		}
		if !packages[cmd.MoveCall.Package] {
			return clierr.New(clierr.CodeBlocked, fmt.Sprintf("%s calls %s::%s in a package outside the protocol allowlist", plan.Action, cmd.MoveCall.Module, cmd.MoveCall.Function))
		}
	}
	return nil
}
