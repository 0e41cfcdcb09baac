package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
	"github.com/ggonzalez94/creek-cli/internal/execution/signer"
	"github.com/ggonzalez94/creek-cli/internal/model"
)

type Provider interface {
	Info() model.ProviderInfo
}

// Coin is one owned coin object of a fungible type.
type Coin struct {
	ObjectID string
	CoinType string
	Balance  *big.Int
}

// OwnedObject is an address-owned Move object with its decoded content.
type OwnedObject struct {
	ObjectID string
	Version  uint64
	Digest   string
	Type     string
	Fields   map[string]any
}

// Receipt describes a transaction the ledger accepted and executed successfully.
type Receipt struct {
	Digest  string
	GasUsed *big.Int
}

// ChainReader is the read side of the ledger used while composing actions.
type ChainReader interface {
	Balance(ctx context.Context, owner, coinType string) (*big.Int, error)
	Coins(ctx context.Context, owner, coinType string) ([]Coin, error)
	OwnedObjects(ctx context.Context, owner, structType string) ([]OwnedObject, error)
}

// Ledger reads chain state and submits programs atomically: either every
// command takes effect or none does.
type Ledger interface {
	Provider
	ChainReader
	Submit(ctx context.Context, s signer.Signer, program ptb.Program) (Receipt, error)
}

// Registration is the off-chain registration service response.
type Registration struct {
	Success bool         `json:"success"`
	Code    ResponseCode `json:"code"`
	Message string       `json:"msg"`
}

// ResponseCode is the service status code. The service sends it as a JSON
// number or a string; both decode to the same text.
type ResponseCode string

func (c *ResponseCode) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*c = ""
		return nil
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ResponseCode(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("response code must be a number or string, got %s", raw)
	}
	*c = ResponseCode(n.String())
	return nil
}

type Registrar interface {
	Provider
	Connect(ctx context.Context, walletAddress string) (Registration, error)
}
