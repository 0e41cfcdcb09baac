package ptb

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/fardream/go-bcs/bcs"
	"github.com/pattonkan/sui-go/sui/suiptb"
)

func TestBuilderDedupesObjectInputs(t *testing.T) {
	b := NewBuilder()
	first := b.Object("0x6")
	second := b.Object("0x0000000000000000000000000000000000000000000000000000000000000006")
	if first != second {
		t.Fatalf("expected same input slot, got %v and %v", first, second)
	}
	other := b.Object("0x2")
	if other.Index != 1 {
		t.Fatalf("expected second object at index 1, got %d", other.Index)
	}
	prog, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if len(prog.Inputs()) != 2 || len(prog.ObjectIDs()) != 2 {
		t.Fatalf("unexpected inputs: %+v", prog.Inputs())
	}
}

func TestPureU64EncodesLittleEndian(t *testing.T) {
	b := NewBuilder()
	b.PureU64(big.NewInt(258))
	prog, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	got := prog.Inputs()[0].Pure
	want := []byte{2, 1, 0, 0, 0, 0, 0, 0}
	if string(got) != string(want) {
		t.Fatalf("unexpected pure bytes: %v", got)
	}
}

func TestPureAddressIsThirtyTwoBytes(t *testing.T) {
	b := NewBuilder()
	b.PureAddress("0xabc")
	prog, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	got := prog.Inputs()[0].Pure
	if len(got) != 32 || got[30] != 0x0a || got[31] != 0xbc {
		t.Fatalf("unexpected address bytes: %x", got)
	}
}

func TestBuilderErrorsAreSticky(t *testing.T) {
	b := NewBuilder()
	tooBig := new(big.Int).Lsh(big.NewInt(1), 70)
	b.PureU64(tooBig)
	b.MoveCall("0x2::coin::value", nil)
	if _, err := b.Finish(); err == nil {
		t.Fatal("expected overflow error from Finish")
	}

	b = NewBuilder()
	b.MoveCall("not-a-target", nil)
	if _, err := b.Finish(); err == nil {
		t.Fatal("expected invalid target error")
	}
}

func TestSplitCoinsReturnsNestedResults(t *testing.T) {
	b := NewBuilder()
	amount := b.PureU64Value(5)
	coins := b.SplitCoins(GasCoin(), amount, amount)
	if len(coins) != 2 {
		t.Fatalf("expected two coins, got %d", len(coins))
	}
	if coins[1].Kind != ArgNestedResult || coins[1].Index != 0 || coins[1].Value != 1 {
		t.Fatalf("unexpected nested result %+v", coins[1])
	}
}

func TestMergeWithoutSourcesIsNoop(t *testing.T) {
	b := NewBuilder()
	b.MergeCoins(b.Object("0x1"))
	if b.Len() != 0 {
		t.Fatalf("expected no command, got %d", b.Len())
	}
}

func TestProgramIsImmutable(t *testing.T) {
	b := NewBuilder()
	coin := b.Object("0x11")
	b.MoveCall("0x2::pay::keep", []string{"0x2::sui::SUI"}, coin)
	prog, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	b.MoveCall("0x2::pay::keep", nil, coin)
	if len(prog.Commands()) != 1 {
		t.Fatalf("program changed after builder reuse: %d commands", len(prog.Commands()))
	}

	cmds := prog.Commands()
	cmds[0].MoveCall.Function = "mutated"
	cmds[0].MoveCall.TypeArguments[0] = "mutated"
	again := prog.Commands()
	if again[0].MoveCall.Function != "keep" || again[0].MoveCall.TypeArguments[0] != "0x2::sui::SUI" {
		t.Fatalf("program mutated through accessor: %+v", again[0].MoveCall)
	}
	if got := prog.Labels(); len(got) != 1 || got[0] != "pay::keep" {
		t.Fatalf("unexpected labels %v", got)
	}
}

func TestTransactionEncodesKnownBytes(t *testing.T) {
	b := NewBuilder()
	coins := b.SplitCoins(GasCoin(), b.PureU64Value(1000))
	b.TransferObjects([]Argument{coins[0]}, b.PureAddress("0xb"))
	prog, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	raw, err := bcs.Marshal(prog.Transaction())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "" +
		"02" + "0008e803000000000000" + // Pure u64 1000
		"0020000000000000000000000000000000000000000000000000000000000000000b" + // Pure address 0x0b
		"02" + "02" + "00" + "01" + "010000" + // SplitCoins(GasCoin, [Input 0])
		"01" + "01" + "0300000000" + "010100" // TransferObjects([NestedResult 0,0], Input 1)
	if got := hex.EncodeToString(raw); got != want {
		t.Fatalf("unexpected encoding\n got %s\nwant %s", got, want)
	}
}

func TestTransactionMirrorsDescription(t *testing.T) {
	b := NewBuilder()
	coin := b.Object("0x11")
	parts := b.SplitCoins(GasCoin(), b.PureU64Value(7))
	b.MergeCoins(coin, parts[0])
	b.MoveCall("0x2::pay::keep", []string{"0x2::coin::Coin<0x2::sui::SUI>"}, coin)
	b.TransferObjects([]Argument{coin}, b.PureAddress("0xaa"))
	prog, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	tx := prog.Transaction()
	if len(tx.Inputs) != len(prog.Inputs()) || len(tx.Commands) != len(prog.Commands()) {
		t.Fatalf("ledger form has %d inputs/%d commands, description %d/%d", len(tx.Inputs), len(tx.Commands), len(prog.Inputs()), len(prog.Commands()))
	}
	if tx.Inputs[0].Object == nil || tx.Inputs[1].Pure == nil || tx.Inputs[2].Pure == nil {
		t.Fatalf("unexpected input kinds %+v", tx.Inputs)
	}
	if split := tx.Commands[0].SplitCoins; split == nil || split.Coin.GasCoin == nil {
		t.Fatalf("expected split of the gas coin, got %+v", tx.Commands[0])
	}
	if tx.Commands[1].MergeCoins == nil {
		t.Fatalf("expected merge, got %+v", tx.Commands[1])
	}
	call := tx.Commands[2].MoveCall
	if call == nil || string(call.Module) != "pay" || string(call.Function) != "keep" {
		t.Fatalf("unexpected move call %+v", call)
	}
	if len(call.TypeArguments) != 1 || call.TypeArguments[0].Struct == nil || len(call.TypeArguments[0].Struct.TypeParams) != 1 {
		t.Fatalf("unexpected type arguments %+v", call.TypeArguments)
	}
	transfer := tx.Commands[3].TransferObjects
	if transfer == nil || transfer.Address.Input == nil || *transfer.Address.Input != 2 {
		t.Fatalf("unexpected transfer %+v", transfer)
	}

	tx.Inputs[0] = suiptb.CallArg{}
	if prog.Transaction().Inputs[0].Object == nil {
		t.Fatal("program mutated through Transaction")
	}
}
