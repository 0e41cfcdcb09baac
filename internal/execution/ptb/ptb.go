// Package ptb builds programmable transaction blocks: an ordered list of
// inputs and commands executed atomically by the ledger.
//
// Builder drives a suiptb builder and keeps a plain description of every
// input and command next to it, so callers can inspect a program without
// decoding ledger types.
package ptb

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/fardream/go-bcs/bcs"
	"github.com/pattonkan/sui-go/sui"
	"github.com/pattonkan/sui-go/sui/suiptb"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/id"
)

type ArgumentKind uint8

const (
	ArgGasCoin ArgumentKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument references the gas coin, an input, or the output of an earlier command.
type Argument struct {
	Kind  ArgumentKind
	Index uint16
	Value uint16
}

func GasCoin() Argument { return Argument{Kind: ArgGasCoin} }

// Nested selects the i-th value of a multi-value command result.
func (a Argument) Nested(i uint16) Argument {
	return Argument{Kind: ArgNestedResult, Index: a.Index, Value: i}
}

func (a Argument) String() string {
	switch a.Kind {
	case ArgGasCoin:
		return "gas"
	case ArgInput:
		return fmt.Sprintf("input(%d)", a.Index)
	case ArgResult:
		return fmt.Sprintf("result(%d)", a.Index)
	default:
		return fmt.Sprintf("result(%d,%d)", a.Index, a.Value)
	}
}

// Raw converts the argument to its ledger form.
func (a Argument) Raw() suiptb.Argument {
	switch a.Kind {
	case ArgGasCoin:
		return gasCoinArgument()
	case ArgInput:
		idx := a.Index
		return suiptb.Argument{Input: &idx}
	case ArgResult:
		idx := a.Index
		return suiptb.Argument{Result: &idx}
	default:
		return suiptb.Argument{NestedResult: &suiptb.NestedResult{Cmd: a.Index, Result: a.Value}}
	}
}

// GasCoin is a unit variant: any non-nil payload selects it.
func gasCoinArgument() suiptb.Argument {
	var arg suiptb.Argument
	field := reflect.ValueOf(&arg).Elem().FieldByName("GasCoin")
	field.Set(reflect.New(field.Type().Elem()))
	return arg
}

func rawArguments(args []Argument) []suiptb.Argument {
	out := make([]suiptb.Argument, len(args))
	for i, a := range args {
		out[i] = a.Raw()
	}
	return out
}

type InputKind uint8

const (
	InputPure InputKind = iota
	InputObject
)

// Input is either raw BCS bytes or an object id resolved at submission.
type Input struct {
	Kind     InputKind
	Pure     []byte
	ObjectID string
}

type CommandKind uint8

const (
	CommandMoveCall CommandKind = iota
	CommandTransferObjects
	CommandSplitCoins
	CommandMergeCoins
)

type MoveCall struct {
	Package       string
	Module        string
	Function      string
	TypeArguments []string
	Arguments     []Argument
}

type Command struct {
	Kind CommandKind

	MoveCall *MoveCall

	// SplitCoins / MergeCoins
	Coin    Argument
	Amounts []Argument
	Sources []Argument

	// TransferObjects
	Objects   []Argument
	Recipient Argument
}

// Label is a short human name for the command, used in run records.
func (c Command) Label() string {
	switch c.Kind {
	case CommandMoveCall:
		if c.MoveCall == nil {
			return "move_call"
		}
		return c.MoveCall.Module + "::" + c.MoveCall.Function
	case CommandTransferObjects:
		return "transfer_objects"
	case CommandSplitCoins:
		return "split_coins"
	case CommandMergeCoins:
		return "merge_coins"
	default:
		return "unknown"
	}
}

func (c Command) clone() Command {
	out := c
	if c.MoveCall != nil {
		mc := *c.MoveCall
		mc.TypeArguments = append([]string(nil), c.MoveCall.TypeArguments...)
		mc.Arguments = append([]Argument(nil), c.MoveCall.Arguments...)
		out.MoveCall = &mc
	}
	out.Amounts = append([]Argument(nil), c.Amounts...)
	out.Sources = append([]Argument(nil), c.Sources...)
	out.Objects = append([]Argument(nil), c.Objects...)
	return out
}

// Builder accumulates inputs and commands. The first error is sticky and
// reported by Finish, so composition code can chain calls without checks.
type Builder struct {
	inner    *suiptb.ProgrammableTransactionBuilder
	inputs   []Input
	objects  map[string]uint16
	commands []Command
	err      error
}

func NewBuilder() *Builder {
	return &Builder{
		inner:   suiptb.NewTransactionDataTransactionBuilder(),
		objects: map[string]uint16{},
	}
}

// Object adds an object input, reusing the existing slot for repeated ids.
// The ledger reference is a placeholder carrying only the id until the
// submitter resolves version, digest and ownership.
func (b *Builder) Object(objectID string) Argument {
	normalized, err := id.NormalizeAddress(objectID)
	if err != nil {
		b.fail(err)
		return Argument{Kind: ArgInput}
	}
	if idx, ok := b.objects[normalized]; ok {
		return Argument{Kind: ArgInput, Index: idx}
	}
	arg, err := b.inner.Obj(suiptb.ObjectArg{ImmOrOwnedObject: &sui.ObjectRef{ObjectId: sui.MustObjectIdFromHex(normalized)}})
	if err != nil {
		b.fail(clierr.Wrap(clierr.CodeInternal, "add object input", err))
		return Argument{Kind: ArgInput}
	}
	idx := b.record(arg, Input{Kind: InputObject, ObjectID: normalized})
	b.objects[normalized] = idx
	return Argument{Kind: ArgInput, Index: idx}
}

// PureU64 adds a u64 pure input. Values outside the u64 range fail the build.
func (b *Builder) PureU64(v *big.Int) Argument {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		b.fail(clierr.New(clierr.CodeUsage, fmt.Sprintf("amount %v does not fit in u64", v)))
		return Argument{Kind: ArgInput}
	}
	return b.pure(v.Uint64())
}

func (b *Builder) PureU64Value(v uint64) Argument {
	return b.pure(v)
}

// PureAddress adds a 32-byte address pure input.
func (b *Builder) PureAddress(addr string) Argument {
	normalized, err := id.NormalizeAddress(addr)
	if err != nil {
		b.fail(err)
		return Argument{Kind: ArgInput}
	}
	return b.pure(*sui.MustAddressFromHex(normalized))
}

func (b *Builder) pure(v any) Argument {
	encoded, err := bcs.Marshal(v)
	if err != nil {
		b.fail(clierr.Wrap(clierr.CodeInternal, "encode pure input", err))
		return Argument{Kind: ArgInput}
	}
	arg, err := b.inner.Pure(v)
	if err != nil {
		b.fail(clierr.Wrap(clierr.CodeInternal, "add pure input", err))
		return Argument{Kind: ArgInput}
	}
	return Argument{Kind: ArgInput, Index: b.record(arg, Input{Kind: InputPure, Pure: encoded})}
}

// record mirrors an input the inner builder accepted. Identical pure values
// may share a slot, in which case the existing description stands.
func (b *Builder) record(arg suiptb.Argument, in Input) uint16 {
	if arg.Input == nil {
		b.fail(clierr.New(clierr.CodeInternal, "input builder returned a non-input argument"))
		return 0
	}
	idx := *arg.Input
	if int(idx) == len(b.inputs) {
		b.inputs = append(b.inputs, in)
	}
	return idx
}

// MoveCall appends a call to target ("package::module::function") and
// returns its result. Use Nested on the result for multi-value returns.
func (b *Builder) MoveCall(target string, typeArgs []string, args ...Argument) Argument {
	parts := strings.Split(target, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		b.fail(clierr.New(clierr.CodeInternal, fmt.Sprintf("invalid move call target %q", target)))
		return Argument{Kind: ArgResult}
	}
	pkg, err := id.NormalizeAddress(parts[0])
	if err != nil {
		b.fail(err)
		return Argument{Kind: ArgResult}
	}
	tags := make([]sui.TypeTag, 0, len(typeArgs))
	for _, raw := range typeArgs {
		tag, err := id.ParseTypeTag(raw)
		if err != nil {
			b.fail(err)
			return Argument{Kind: ArgResult}
		}
		tags = append(tags, typeTag(tag))
	}
	call := &suiptb.ProgrammableMoveCall{
		Package:       sui.MustPackageIdFromHex(pkg),
		TypeArguments: tags,
		Arguments:     rawArguments(args),
	}
	setIdentifier(&call.Module, parts[1])
	setIdentifier(&call.Function, parts[2])
	return b.addCommand(
		Command{
			Kind: CommandMoveCall,
			MoveCall: &MoveCall{
				Package:       pkg,
				Module:        parts[1],
				Function:      parts[2],
				TypeArguments: append([]string(nil), typeArgs...),
				Arguments:     append([]Argument(nil), args...),
			},
		},
		suiptb.Command{MoveCall: call},
	)
}

func typeTag(t id.TypeTag) sui.TypeTag {
	params := make([]sui.TypeTag, len(t.Params))
	for i, p := range t.Params {
		params[i] = typeTag(p)
	}
	tag := &sui.StructTag{TypeParams: params}
	addr := sui.MustAddressFromHex(t.Address)
	switch dst := any(&tag.Address).(type) {
	case **sui.Address:
		*dst = addr
	case *sui.Address:
		*dst = *addr
	}
	setIdentifier(&tag.Module, t.Module)
	setIdentifier(&tag.Name, t.Name)
	return sui.TypeTag{Struct: tag}
}

func setIdentifier[T ~string](dst *T, s string) { *dst = T(s) }

// SplitCoins splits amounts off coin and returns one argument per new coin.
func (b *Builder) SplitCoins(coin Argument, amounts ...Argument) []Argument {
	result := b.addCommand(
		Command{Kind: CommandSplitCoins, Coin: coin, Amounts: append([]Argument(nil), amounts...)},
		suiptb.Command{SplitCoins: &suiptb.ProgrammableSplitCoins{Coin: coin.Raw(), Amounts: rawArguments(amounts)}},
	)
	out := make([]Argument, len(amounts))
	for i := range amounts {
		out[i] = result.Nested(uint16(i))
	}
	return out
}

func (b *Builder) MergeCoins(dst Argument, sources ...Argument) {
	if len(sources) == 0 {
		return
	}
	b.addCommand(
		Command{Kind: CommandMergeCoins, Coin: dst, Sources: append([]Argument(nil), sources...)},
		suiptb.Command{MergeCoins: &suiptb.ProgrammableMergeCoins{Destination: dst.Raw(), Sources: rawArguments(sources)}},
	)
}

func (b *Builder) TransferObjects(objects []Argument, recipient Argument) {
	b.addCommand(
		Command{Kind: CommandTransferObjects, Objects: append([]Argument(nil), objects...), Recipient: recipient},
		suiptb.Command{TransferObjects: &suiptb.ProgrammableTransferObjects{Objects: rawArguments(objects), Address: recipient.Raw()}},
	)
}

// Len reports the number of commands appended so far.
func (b *Builder) Len() int { return len(b.commands) }

func (b *Builder) Err() error { return b.err }

// Finish returns an immutable snapshot of the program.
func (b *Builder) Finish() (Program, error) {
	if b.err != nil {
		return Program{}, b.err
	}
	inputs := make([]Input, len(b.inputs))
	for i, in := range b.inputs {
		inputs[i] = Input{Kind: in.Kind, Pure: append([]byte(nil), in.Pure...), ObjectID: in.ObjectID}
	}
	commands := make([]Command, len(b.commands))
	for i, cmd := range b.commands {
		commands[i] = cmd.clone()
	}
	return Program{inputs: inputs, commands: commands, tx: copyTransaction(b.inner.Finish())}, nil
}

func (b *Builder) addCommand(cmd Command, raw suiptb.Command) Argument {
	b.inner.Command(raw)
	b.commands = append(b.commands, cmd)
	return Argument{Kind: ArgResult, Index: uint16(len(b.commands) - 1)}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Program is a finished, read-only transaction body.
type Program struct {
	inputs   []Input
	commands []Command
	tx       suiptb.ProgrammableTransaction
}

func (p Program) Inputs() []Input {
	out := make([]Input, len(p.inputs))
	for i, in := range p.inputs {
		out[i] = Input{Kind: in.Kind, Pure: append([]byte(nil), in.Pure...), ObjectID: in.ObjectID}
	}
	return out
}

func (p Program) Commands() []Command {
	out := make([]Command, len(p.commands))
	for i, cmd := range p.commands {
		out[i] = cmd.clone()
	}
	return out
}

// Transaction returns the ledger form of the program. Object inputs hold
// id-only references; replace them before signing.
func (p Program) Transaction() suiptb.ProgrammableTransaction {
	return copyTransaction(p.tx)
}

func copyTransaction(tx suiptb.ProgrammableTransaction) suiptb.ProgrammableTransaction {
	return suiptb.ProgrammableTransaction{
		Inputs:   append([]suiptb.CallArg(nil), tx.Inputs...),
		Commands: append([]suiptb.Command(nil), tx.Commands...),
	}
}

// ObjectIDs lists every object input in input order.
func (p Program) ObjectIDs() []string {
	out := make([]string, 0, len(p.inputs))
	for _, in := range p.inputs {
		if in.Kind == InputObject {
			out = append(out, in.ObjectID)
		}
	}
	return out
}

func (p Program) Labels() []string {
	out := make([]string, len(p.commands))
	for i, cmd := range p.commands {
		out[i] = cmd.Label()
	}
	return out
}

func (p Program) Empty() bool { return len(p.commands) == 0 }
