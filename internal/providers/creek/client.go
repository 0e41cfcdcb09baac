// Package creek is the registration client for the Creek off-chain API.
package creek

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/httpx"
	"github.com/ggonzalez94/creek-cli/internal/model"
	"github.com/ggonzalez94/creek-cli/internal/providers"
	"github.com/ggonzalez94/creek-cli/internal/registry"
)

type Client struct {
	http    *httpx.Client
	apiBase string
}

// New builds a client for apiBase. The http client should not retry: a
// registration POST is attempted exactly once.
func New(httpClient *httpx.Client, apiBase string) (*Client, error) {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		apiBase = registry.TestnetAPIURL
	}
	if !registry.IsAllowedEndpoint(apiBase) {
		return nil, clierr.Newf(clierr.CodeUsage, "api url %q must use https (http is allowed for loopback only)", apiBase)
	}
	return &Client{http: httpClient, apiBase: apiBase}, nil
}

func (c *Client) Info() model.ProviderInfo {
	return model.ProviderInfo{
		Name:         "creek",
		Type:         "registration",
		Capabilities: []string{"connect"},
	}
}

type connectRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// Connect registers walletAddress. A non-2xx status or success=false is an
// external failure carrying the service's code and message.
func (c *Client) Connect(ctx context.Context, walletAddress string) (providers.Registration, error) {
	body, err := json.Marshal(connectRequest{WalletAddress: walletAddress})
	if err != nil {
		return providers.Registration{}, clierr.Wrap(clierr.CodeInternal, "encode connect request", err)
	}
	var resp providers.Registration
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, registry.ConnectURL(c.apiBase), body, nil, &resp); err != nil {
		return providers.Registration{}, err
	}
	if !resp.Success {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = "Unknown error"
		}
		return resp, clierr.Newf(clierr.CodeExternal, "API error (%s): %s", resp.Code, msg)
	}
	return resp, nil
}
