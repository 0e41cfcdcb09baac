package sui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// u64String decodes u64 values the JSON-RPC sends either as strings or numbers.
type u64String uint64

func (v *u64String) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parse u64 %q: %w", raw, err)
	}
	*v = u64String(n)
	return nil
}

type objectResponse struct {
	Data  *objectData     `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

type objectData struct {
	ObjectID string          `json:"objectId"`
	Version  u64String       `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type"`
	Owner    json.RawMessage `json:"owner"`
	Content  *moveContent    `json:"content"`
}

type moveContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

type objectPage struct {
	Data        []objectResponse `json:"data"`
	NextCursor  json.RawMessage  `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

type executionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type gasCostSummary struct {
	ComputationCost         u64String `json:"computationCost"`
	StorageCost             u64String `json:"storageCost"`
	StorageRebate           u64String `json:"storageRebate"`
	NonRefundableStorageFee u64String `json:"nonRefundableStorageFee"`
}

type transactionEffects struct {
	Status  executionStatus `json:"status"`
	GasUsed gasCostSummary  `json:"gasUsed"`
}

type dryRunResult struct {
	Effects transactionEffects `json:"effects"`
}
