package signer

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/pattonkan/sui-go/suisigner"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/id"
)

const (
	EnvPrivateKeys     = "PRIVATE_KEYS"
	EnvPrivateKeysFile = "CREEK_PRIVATE_KEYS_FILE"

	PrivateKeyHRP = "suiprivkey"

	secretLength                = 32
	defaultKeysFileRelativePath = "creek/keys.txt"
)

// Wallet is a local ed25519 key able to sign for its derived Sui address.
type Wallet struct {
	address string
	key     *suisigner.Signer
}

// NewWallet derives a wallet from a 32-byte secret. Only ed25519 keys are
// accepted.
func NewWallet(scheme Scheme, secret []byte) (*Wallet, error) {
	if len(secret) != secretLength {
		return nil, clierr.New(clierr.CodeMalformedKey, fmt.Sprintf("private key must be %d bytes, got %d", secretLength, len(secret)))
	}
	if scheme != SchemeEd25519 {
		return nil, clierr.New(clierr.CodeMalformedKey, fmt.Sprintf("unsupported key scheme %s (flag 0x%02x); only ed25519 keys are accepted", scheme, byte(scheme)))
	}
	key := suisigner.NewSigner(secret, suisigner.KeySchemeFlagEd25519)
	if key == nil || key.Address == nil {
		return nil, clierr.New(clierr.CodeMalformedKey, "derive ed25519 key")
	}
	address, err := id.NormalizeAddress(key.Address.String())
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeMalformedKey, "derive address", err)
	}
	return &Wallet{address: address, key: key}, nil
}

func (w *Wallet) Address() string { return w.address }

func (w *Wallet) Keypair() *suisigner.Signer { return w.key }

// String never renders key material.
func (w *Wallet) String() string { return id.ShortAddress(w.address) }

// ParsePrivateKey accepts a bech32 "suiprivkey1..." string or 64 hex
// characters (optionally 0x-prefixed, treated as ed25519).
func ParsePrivateKey(raw string) (*Wallet, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return nil, clierr.New(clierr.CodeMalformedKey, "empty private key")
	}
	if strings.HasPrefix(strings.ToLower(clean), PrivateKeyHRP+"1") {
		return parseBech32Key(clean)
	}
	return parseHexKey(clean)
}

func parseBech32Key(raw string) (*Wallet, error) {
	hrp, data, err := bech32.Decode(raw)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeMalformedKey, "invalid bech32 private key", err)
	}
	if hrp != PrivateKeyHRP {
		return nil, clierr.New(clierr.CodeMalformedKey, fmt.Sprintf("unexpected bech32 prefix %q", hrp))
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeMalformedKey, "convert bech32 private key", err)
	}
	if len(decoded) != secretLength+1 {
		return nil, clierr.New(clierr.CodeMalformedKey, fmt.Sprintf("bech32 private key must hold %d bytes, got %d", secretLength+1, len(decoded)))
	}
	return NewWallet(Scheme(decoded[0]), decoded[1:])
}

func parseHexKey(raw string) (*Wallet, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if len(clean) != secretLength*2 {
		return nil, clierr.New(clierr.CodeMalformedKey, fmt.Sprintf("hex private key must be %d characters", secretLength*2))
	}
	secret, err := hex.DecodeString(clean)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeMalformedKey, "invalid hex private key", err)
	}
	return NewWallet(SchemeEd25519, secret)
}

// LoadWallets parses a comma or newline separated key list. Malformed
// entries are reported individually and skipped; they never abort loading.
func LoadWallets(raw string) ([]*Wallet, []error) {
	var (
		wallets []*Wallet
		skipped []error
		seen    = map[string]bool{}
	)
	entries := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	position := 0
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		position++
		w, err := ParsePrivateKey(entry)
		if err != nil {
			skipped = append(skipped, clierr.Wrap(clierr.CodeMalformedKey, fmt.Sprintf("key #%d skipped", position), err))
			continue
		}
		if seen[w.address] {
			continue
		}
		seen[w.address] = true
		wallets = append(wallets, w)
	}
	return wallets, skipped
}

// LoadWalletsFromEnv reads PRIVATE_KEYS, then the keys file named by
// CREEK_PRIVATE_KEYS_FILE, then the default keys file under the config dir.
func LoadWalletsFromEnv() ([]*Wallet, []error, error) {
	if raw := strings.TrimSpace(os.Getenv(EnvPrivateKeys)); raw != "" {
		wallets, skipped := LoadWallets(raw)
		return wallets, skipped, nil
	}
	path := strings.TrimSpace(os.Getenv(EnvPrivateKeysFile))
	if path == "" {
		path = discoverDefaultKeysFile()
	}
	if path == "" {
		return nil, nil, clierr.New(clierr.CodeSigner, fmt.Sprintf("missing private keys: set %s or %s", EnvPrivateKeys, EnvPrivateKeysFile))
	}
	return LoadWalletsFromFile(path)
}

// LoadWalletsFromFile reads one key per line; blank lines and # comments are ignored.
func LoadWalletsFromFile(path string) ([]*Wallet, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, clierr.Wrap(clierr.CodeSigner, "open private keys file", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, clierr.Wrap(clierr.CodeSigner, "read private keys file", err)
	}
	wallets, skipped := LoadWallets(strings.Join(lines, "\n"))
	return wallets, skipped, nil
}

func discoverDefaultKeysFile() string {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	path := filepath.Join(base, defaultKeysFileRelativePath)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
