package registry

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	TestnetRPCURL = "https://sui-testnet-rpc.publicnode.com/"
	TestnetAPIURL = "https://api-test.creek.finance"

	ConnectPath = "/api/user/connect"
)

var defaultRPCByNetwork = map[string]string{
	NetworkTestnet: TestnetRPCURL,
}

var defaultAPIByNetwork = map[string]string{
	NetworkTestnet: TestnetAPIURL,
}

func DefaultRPCURL(network string) (string, bool) {
	value, ok := defaultRPCByNetwork[strings.ToLower(strings.TrimSpace(network))]
	return value, ok
}

func DefaultAPIURL(network string) (string, bool) {
	value, ok := defaultAPIByNetwork[strings.ToLower(strings.TrimSpace(network))]
	return value, ok
}

func ResolveRPCURL(override, network string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	if value, ok := DefaultRPCURL(network); ok {
		return value, nil
	}
	return "", fmt.Errorf("no default rpc configured for network %q; provide --rpc-url", network)
}

// IsAllowedEndpoint accepts https endpoints and plain http only on loopback hosts.
func IsAllowedEndpoint(endpoint string) bool {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return false
	}
	if strings.TrimSpace(parsed.Hostname()) == "" {
		return false
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	if isLoopbackHost(parsed.Hostname()) {
		return scheme == "http" || scheme == "https"
	}
	return scheme == "https"
}

// ConnectURL joins the registration path onto an API base url.
func ConnectURL(apiBase string) string {
	return strings.TrimSuffix(strings.TrimSpace(apiBase), "/") + ConnectPath
}

func isLoopbackHost(host string) bool {
	h := strings.TrimSpace(strings.ToLower(host))
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
