package execution

import (
	"math/big"
	"time"

	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
)

type ActionStatus string

type StepStatus string

type StepType string

const (
	ActionStatusPlanned   ActionStatus = "planned"
	ActionStatusRunning   ActionStatus = "running"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusSkipped   ActionStatus = "skipped"
)

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusConfirmed StepStatus = "confirmed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

const (
	StepTypeMoveCall     StepType = "move_call"
	StepTypeSplitCoins   StepType = "split_coins"
	StepTypeMergeCoins   StepType = "merge_coins"
	StepTypeTransfer     StepType = "transfer_objects"
	StepTypeRegistration StepType = "registration"
)

type ActionStep struct {
	StepID      string     `json:"step_id"`
	Type        StepType   `json:"type"`
	Status      StepStatus `json:"status"`
	Description string     `json:"description,omitempty"`
	Target      string     `json:"target,omitempty"`
	TypeArgs    []string   `json:"type_args,omitempty"`
}

// Action is the persisted record of one (wallet, action) execution.
type Action struct {
	ActionID   string         `json:"action_id"`
	RunID      string         `json:"run_id,omitempty"`
	IntentType string         `json:"intent_type"`
	Status     ActionStatus   `json:"status"`
	Network    string         `json:"network"`
	Wallet     string         `json:"wallet"`
	Asset      string         `json:"asset,omitempty"`
	Amount     string         `json:"amount,omitempty"`
	AmountMode string         `json:"amount_mode,omitempty"`
	TxDigest   string         `json:"tx_digest,omitempty"`
	GasUsed    string         `json:"gas_used,omitempty"`
	SkipReason string         `json:"skip_reason,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	Steps      []ActionStep   `json:"steps"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewAction(actionID, intentType, network, wallet string) Action {
	now := time.Now().UTC().Format(time.RFC3339)
	return Action{
		ActionID:   actionID,
		IntentType: intentType,
		Status:     ActionStatusPlanned,
		Network:    network,
		Wallet:     wallet,
		CreatedAt:  now,
		UpdatedAt:  now,
		Steps:      []ActionStep{},
	}
}

func (a *Action) Touch() {
	a.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

// Plan is a composed program for one wallet that has not been submitted yet.
// A skipped plan carries no program.
type Plan struct {
	Action     string
	Asset      string
	Program    ptb.Program
	Amount     *big.Int
	Warnings   []string
	Skipped    bool
	SkipReason string
}

// Skip returns a plan that submits nothing.
func Skip(action, asset, reason string) Plan {
	return Plan{Action: action, Asset: asset, Amount: new(big.Int), Skipped: true, SkipReason: reason}
}

// Steps summarises the program's commands in order.
func (p Plan) Steps() []ActionStep {
	commands := p.Program.Commands()
	steps := make([]ActionStep, 0, len(commands))
	for i, cmd := range commands {
		step := ActionStep{
			StepID:      stepID(i),
			Status:      StepStatusPending,
			Description: cmd.Label(),
		}
		switch cmd.Kind {
		case ptb.CommandMoveCall:
			step.Type = StepTypeMoveCall
			step.Target = cmd.MoveCall.Package + "::" + cmd.MoveCall.Module + "::" + cmd.MoveCall.Function
			step.TypeArgs = append([]string(nil), cmd.MoveCall.TypeArguments...)
		case ptb.CommandSplitCoins:
			step.Type = StepTypeSplitCoins
		case ptb.CommandMergeCoins:
			step.Type = StepTypeMergeCoins
		default:
			step.Type = StepTypeTransfer
		}
		steps = append(steps, step)
	}
	return steps
}
