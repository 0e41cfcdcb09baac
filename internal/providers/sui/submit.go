package sui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/fardream/go-bcs/bcs"
	"github.com/pattonkan/sui-go/sui"
	"github.com/pattonkan/sui-go/sui/suiptb"
	"github.com/pattonkan/sui-go/suiclient"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/providers"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

// Submit resolves object inputs, selects gas, dry-runs to size the budget,
// signs and executes the program. Any non-success status is an error.
func (c *Client) Submit(ctx context.Context, s signer.Signer, program ptb.Program) (providers.Receipt, error) {
	if program.Empty() {
		return providers.Receipt{}, clierr.New(clierr.CodeInternal, "refusing to submit an empty program")
	}
	keypair := s.Keypair()
	if keypair == nil || keypair.Address == nil {
		return providers.Receipt{}, clierr.New(clierr.CodeSigner, fmt.Sprintf("wallet %s has no signing key", s.Address()))
	}
	sender := keypair.Address
	pt := program.Transaction()
	if err := c.resolveInputs(ctx, program.Inputs(), &pt); err != nil {
		return providers.Receipt{}, err
	}
	payment, available, err := c.selectGas(ctx, sender.String(), program.ObjectIDs())
	if err != nil {
		return providers.Receipt{}, err
	}
	price, err := c.ReferenceGasPrice(ctx)
	if err != nil {
		return providers.Receipt{}, err
	}

	dryBytes, err := transactionBytes(sender, pt, payment, dryRunBudget(c.budget, available), price)
	if err != nil {
		return providers.Receipt{}, err
	}
	var dry dryRunResult
	if err := c.call(ctx, &dry, "sui_dryRunTransactionBlock", base64.StdEncoding.EncodeToString(dryBytes)); err != nil {
		return providers.Receipt{}, err
	}
	if dry.Effects.Status.Status != "success" {
		return providers.Receipt{}, clierr.New(clierr.CodeExternal, fmt.Sprintf("dry run rejected transaction: %s", statusError(dry.Effects.Status)))
	}

	txBytes, err := transactionBytes(sender, pt, payment, estimateBudget(dry.Effects.GasUsed, price), price)
	if err != nil {
		return providers.Receipt{}, err
	}
	var resp *suiclient.SuiTransactionBlockResponse
	err = c.do(ctx, "sui_executeTransactionBlock", func(ctx context.Context) error {
		var err error
		resp, err = c.ledger.SignAndExecuteTransaction(ctx, keypair, txBytes, &suiclient.SuiTransactionBlockResponseOptions{ShowEffects: true})
		return err
	})
	if err != nil {
		return providers.Receipt{}, err
	}
	digest := resp.Digest.String()
	if resp.Effects == nil {
		return providers.Receipt{}, clierr.New(clierr.CodeExternal, fmt.Sprintf("transaction %s returned no effects", digest))
	}
	if !resp.Effects.Data.IsSuccess() {
		reason := "execution status is not success"
		if len(resp.Errors) > 0 {
			reason = fmt.Sprint(resp.Errors)
		}
		return providers.Receipt{}, clierr.New(clierr.CodeExternal, fmt.Sprintf("transaction %s failed: %s", digest, reason))
	}
	return providers.Receipt{Digest: digest, GasUsed: netGas(dry.Effects.GasUsed)}, nil
}

// transactionBytes is the BCS form of the V1 transaction data that gets signed.
func transactionBytes(sender *sui.Address, pt suiptb.ProgrammableTransaction, payment []*sui.ObjectRef, budget, price uint64) ([]byte, error) {
	out, err := bcs.Marshal(suiptb.NewTransactionData(sender, pt, payment, budget, price))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "encode transaction data", err)
	}
	return out, nil
}

// resolveInputs replaces the id-only object inputs of pt with full object
// args. Shared objects are mutable except the clock.
func (c *Client) resolveInputs(ctx context.Context, inputs []ptb.Input, pt *suiptb.ProgrammableTransaction) error {
	if len(inputs) != len(pt.Inputs) {
		return clierr.New(clierr.CodeInternal, fmt.Sprintf("program describes %d inputs but carries %d", len(inputs), len(pt.Inputs)))
	}
	for i, in := range inputs {
		if in.Kind != ptb.InputObject {
			continue
		}
		arg, ok := c.cachedShared(in.ObjectID)
		if !ok {
			var err error
			if arg, err = c.objectArg(ctx, in.ObjectID); err != nil {
				return err
			}
		}
		pt.Inputs[i] = suiptb.CallArg{Object: &arg}
	}
	return nil
}

func (c *Client) objectArg(ctx context.Context, objectID string) (suiptb.ObjectArg, error) {
	var arg suiptb.ObjectArg
	err := c.do(ctx, "sui_getObject", func(ctx context.Context) error {
		obj, err := c.ledger.GetObject(ctx, &suiclient.GetObjectRequest{
			ObjectId: sui.MustObjectIdFromHex(objectID),
			Options:  &suiclient.SuiObjectDataOptions{ShowOwner: true, ShowType: true},
		})
		if err != nil {
			return err
		}
		if obj == nil || obj.Data == nil {
			return clierr.New(clierr.CodeExternal, fmt.Sprintf("object %s not found", objectID))
		}
		owner := obj.Data.Owner
		if owner == nil {
			return clierr.New(clierr.CodeExternal, fmt.Sprintf("object %s has no owner", objectID))
		}
		if owner.ObjectOwnerInternal != nil && owner.Shared != nil {
			ref := obj.Data.RefSharedObject()
			c.storeShared(objectID, uint64(ref.Version))
			arg = suiptb.ObjectArg{SharedObject: &suiptb.SharedObjectArg{
				Id:                   ref.ObjectId,
				InitialSharedVersion: ref.Version,
				Mutable:              objectID != c.clockID,
			}}
			return nil
		}
		ownedRef := obj.Data.Ref()
		arg = suiptb.ObjectArg{ImmOrOwnedObject: &ownedRef}
		return nil
	})
	return arg, err
}

type sharedEntry struct {
	InitialSharedVersion uint64 `json:"initial_shared_version"`
}

func sharedKey(objectID string) string {
	return "sui:shared:" + objectID
}

func (c *Client) cachedShared(objectID string) (suiptb.ObjectArg, bool) {
	if c.cache == nil {
		return suiptb.ObjectArg{}, false
	}
	raw, ok, err := c.cache.Lookup(sharedKey(objectID))
	if err != nil || !ok {
		return suiptb.ObjectArg{}, false
	}
	var entry sharedEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.InitialSharedVersion == 0 {
		return suiptb.ObjectArg{}, false
	}
	shared := &suiptb.SharedObjectArg{
		Id:      sui.MustObjectIdFromHex(objectID),
		Mutable: objectID != c.clockID,
	}
	setVersion(&shared.InitialSharedVersion, entry.InitialSharedVersion)
	return suiptb.ObjectArg{SharedObject: shared}, true
}

func setVersion[T ~uint64](dst *T, v uint64) { *dst = T(v) }

func (c *Client) storeShared(objectID string, version uint64) {
	if c.cache == nil || version == 0 {
		return
	}
	raw, err := json.Marshal(sharedEntry{InitialSharedVersion: version})
	if err != nil {
		return
	}
	_ = c.cache.Set(sharedKey(objectID), raw, sharedObjectTTL)
}

// selectGas picks the owner's SUI coins not already used as program inputs,
// largest first, and reports their combined balance.
func (c *Client) selectGas(ctx context.Context, owner string, exclude []string) ([]*sui.ObjectRef, uint64, error) {
	coins, err := c.listCoins(ctx, owner, registry.SUICoinType)
	if err != nil {
		return nil, 0, err
	}
	skip := map[string]bool{}
	for _, objectID := range exclude {
		skip[objectID] = true
	}
	candidates := make([]ledgerCoin, 0, len(coins))
	for _, coin := range coins {
		if skip[coin.objectID] || coin.balance.Sign() == 0 || coin.ref == nil {
			continue
		}
		candidates = append(candidates, coin)
	}
	if len(candidates) == 0 {
		return nil, 0, clierr.New(clierr.CodeInsufficientBalance, "no SUI coins available to pay gas")
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].balance.Cmp(candidates[j].balance) > 0
	})
	if len(candidates) > maxGasPayment {
		candidates = candidates[:maxGasPayment]
	}

	total := new(big.Int)
	refs := make([]*sui.ObjectRef, 0, len(candidates))
	for _, coin := range candidates {
		refs = append(refs, coin.ref)
		total.Add(total, coin.balance)
	}
	available := uint64(^uint64(0))
	if total.IsUint64() {
		available = total.Uint64()
	}
	return refs, available, nil
}

func dryRunBudget(limit, available uint64) uint64 {
	if available < limit {
		return available
	}
	return limit
}

// estimateBudget pads computation with a fixed overhead and adds net storage.
func estimateBudget(gas gasCostSummary, price uint64) uint64 {
	computation := uint64(gas.ComputationCost) + gasSafeOverhead*price
	withStorage := computation + uint64(gas.StorageCost)
	rebate := uint64(gas.StorageRebate)
	if withStorage > rebate && withStorage-rebate > computation {
		return withStorage - rebate
	}
	return computation
}

func netGas(gas gasCostSummary) *big.Int {
	out := new(big.Int).SetUint64(uint64(gas.ComputationCost))
	out.Add(out, new(big.Int).SetUint64(uint64(gas.StorageCost)))
	out.Sub(out, new(big.Int).SetUint64(uint64(gas.StorageRebate)))
	return out
}

func statusError(status executionStatus) string {
	if status.Error != "" {
		return status.Error
	}
	if status.Status == "" {
		return "unknown status"
	}
	return strconv.Quote(status.Status)
}
