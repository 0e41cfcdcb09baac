package execution

import (
	"path/filepath"
	"testing"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "runs.db"), filepath.Join(dir, "runs.lock"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveGetList(t *testing.T) {
	store := openTestStore(t)

	action := NewAction(NewActionID(), "swap", "testnet", "0xaa")
	action.RunID = "run-1"
	action.Steps = append(action.Steps, ActionStep{
		StepID:      "cmd-01",
		Type:        StepTypeMoveCall,
		Status:      StepStatusPending,
		Description: "gusd_usdc_vault::mint_gusd",
	})
	if err := store.Save(action); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(action.ActionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.IntentType != "swap" || got.Wallet != "0xaa" || len(got.Steps) != 1 {
		t.Fatalf("unexpected action: %+v", got)
	}

	got.Status = ActionStatusCompleted
	got.TxDigest = "digest"
	if err := store.Save(got); err != nil {
		t.Fatalf("Save update failed: %v", err)
	}
	completed, err := store.List(Filter{Status: ActionStatusCompleted})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(completed) != 1 || completed[0].TxDigest != "digest" {
		t.Fatalf("expected one completed action, got %+v", completed)
	}
}

func TestStoreListFilters(t *testing.T) {
	store := openTestStore(t)
	for _, spec := range []struct{ run, wallet, action string }{
		{"run-1", "0xaa", "faucet"},
		{"run-1", "0xbb", "faucet"},
		{"run-2", "0xaa", "swap"},
	} {
		a := NewAction(NewActionID(), spec.action, "testnet", spec.wallet)
		a.RunID = spec.run
		if err := store.Save(a); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	byRun, err := store.List(Filter{RunID: "run-1"})
	if err != nil || len(byRun) != 2 {
		t.Fatalf("expected two actions for run-1, got %d err=%v", len(byRun), err)
	}
	byWallet, err := store.List(Filter{Wallet: "0xaa", Action: "swap"})
	if err != nil || len(byWallet) != 1 {
		t.Fatalf("expected one swap for 0xaa, got %d err=%v", len(byWallet), err)
	}
	limited, err := store.List(Filter{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d err=%v", len(limited), err)
	}
}

func TestStoreGetMissingAction(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get("missing")
	if !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error for missing action, got %v", err)
	}
}
