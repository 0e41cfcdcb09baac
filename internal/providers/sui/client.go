// Package sui is the ledger provider. Typed reads, object resolution and
// signed execution go through suiclient; owned-object content, the gas price
// and dry runs go over the raw JSON-RPC connection.
package sui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pattonkan/sui-go/sui"
	"github.com/pattonkan/sui-go/suiclient"
	"golang.org/x/time/rate"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/id"
	"github.com/ggonzalez94/creek-cli/internal/model"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

const (
	DefaultGasBudgetCap uint64 = 50_000_000
	DefaultRateLimit           = 10.0

	pageLimit       = 50
	maxGasPayment   = 255
	gasSafeOverhead = 1000
	sharedObjectTTL = 24 * time.Hour
)

// ObjectCache persists immutable object metadata between runs.
type ObjectCache interface {
	Lookup(key string) ([]byte, bool, error)
	Set(key string, value []byte, ttl time.Duration) error
}

type Options struct {
	HTTPClient   *http.Client
	RateLimit    float64
	GasBudgetCap uint64
	Cache        ObjectCache
	UserAgent    string
}

type Client struct {
	ledger   *suiclient.ClientImpl
	rpc      *rpc.Client
	timeout  time.Duration
	endpoint string
	limiter  *rate.Limiter
	budget   uint64
	cache    ObjectCache
	clockID  string
}

// New dials a JSON-RPC endpoint over HTTP. No connection is made until the first call.
func New(endpoint string, opts Options) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, clierr.New(clierr.CodeUsage, "sui rpc endpoint is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	rc, err := rpc.DialHTTPWithClient(endpoint, httpClient)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "dial sui rpc", err)
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		rc.SetHeader("User-Agent", ua)
	}
	limit := opts.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	budget := opts.GasBudgetCap
	if budget == 0 {
		budget = DefaultGasBudgetCap
	}
	return &Client{
		ledger:   suiclient.NewClient(endpoint),
		rpc:      rc,
		timeout:  httpClient.Timeout,
		endpoint: endpoint,
		limiter:  rate.NewLimiter(rate.Limit(limit), 1),
		budget:   budget,
		cache:    opts.Cache,
		clockID:  mustNormalize(registry.ClockObjectID),
	}, nil
}

func (c *Client) Info() model.ProviderInfo {
	return model.ProviderInfo{
		Name: "sui",
		Type: "ledger",
		Capabilities: []string{
			"balance",
			"coins",
			"owned_objects",
			"submit",
		},
	}
}

func (c *Client) Close() {
	if c != nil && c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return clierr.Wrap(clierr.CodeCanceled, "rate limiter wait", err)
	}
	if err := c.rpc.CallContext(ctx, result, method, args...); err != nil {
		return mapRPCError(method, err)
	}
	return nil
}

// do runs a suiclient request under the rate limiter and the HTTP timeout.
func (c *Client) do(ctx context.Context, method string, fn func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return clierr.Wrap(clierr.CodeCanceled, "rate limiter wait", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		var cErr *clierr.Error
		if errors.As(err, &cErr) {
			return err
		}
		return mapRPCError(method, err)
	}
	return nil
}

func mapRPCError(method string, err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		return clierr.Wrap(clierr.CodeRateLimited, fmt.Sprintf("%s rate limited", method), err)
	}
	if errors.Is(err, context.Canceled) {
		return clierr.Wrap(clierr.CodeCanceled, fmt.Sprintf("%s cancelled", method), err)
	}
	return clierr.Wrap(clierr.CodeExternal, fmt.Sprintf("%s failed", method), err)
}

// Balance returns the total balance of coinType held by owner.
func (c *Client) Balance(ctx context.Context, owner, coinType string) (*big.Int, error) {
	addr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	ct := sui.ObjectType(coinType)
	var total *big.Int
	err = c.do(ctx, "suix_getBalance", func(ctx context.Context) error {
		res, err := c.ledger.GetBalance(ctx, &suiclient.GetBalanceRequest{Owner: addr, CoinType: ct})
		if err != nil {
			return err
		}
		if res.TotalBalance == nil {
			return fmt.Errorf("balance of %s missing from response", coinType)
		}
		total = new(big.Int).Set(res.TotalBalance.Int)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// ReferenceGasPrice returns the current epoch's reference gas price in MIST.
func (c *Client) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	var price u64String
	if err := c.call(ctx, &price, "suix_getReferenceGasPrice"); err != nil {
		return 0, err
	}
	if price == 0 {
		return 0, clierr.New(clierr.CodeExternal, "ledger returned zero reference gas price")
	}
	return uint64(price), nil
}

func cursorArg(raw json.RawMessage) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return raw
}

func parseAddress(raw string) (*sui.Address, error) {
	normalized, err := id.NormalizeAddress(raw)
	if err != nil {
		return nil, err
	}
	return sui.MustAddressFromHex(normalized), nil
}

func mustNormalize(raw string) string {
	normalized, err := id.NormalizeAddress(raw)
	if err != nil {
		panic(err)
	}
	return normalized
}
