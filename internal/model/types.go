package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string           `json:"request_id"`
	Timestamp time.Time        `json:"timestamp"`
	Command   string           `json:"command"`
	Network   string           `json:"network,omitempty"`
	Providers []ProviderStatus `json:"providers,omitempty"`
	Partial   bool             `json:"partial"`
}

type ProviderStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

type ProviderInfo struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities"`
}

// ActionInfo describes one runnable action.
type ActionInfo struct {
	Name          string `json:"name"`
	Title         string `json:"title"`
	Asset         string `json:"asset,omitempty"`
	NeedsAmount   bool   `json:"needs_amount"`
	DefaultAmount string `json:"default_amount,omitempty"`
	DefaultUnits  string `json:"default_amount_base_units,omitempty"`
	OnChain       bool   `json:"on_chain"`
}

type WalletInfo struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
	Scheme  string `json:"scheme"`
}

type Balance struct {
	Wallet    string `json:"wallet"`
	Asset     string `json:"asset"`
	CoinType  string `json:"coin_type"`
	BaseUnits string `json:"amount_base_units"`
	Amount    string `json:"amount"`
}

// RunSummary is the rendered result of a batch.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Wallets    int       `json:"wallets"`
	Actions    []string  `json:"actions"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Planned    int       `json:"planned,omitempty"`
	Canceled   bool      `json:"canceled,omitempty"`
	Outcomes   any       `json:"outcomes"`
}
