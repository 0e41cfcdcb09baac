package id

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

// AddressLength is the byte length of Sui addresses and object ids.
const AddressLength = 32

var hexBodyPattern = regexp.MustCompile(`^[0-9a-fA-F]{1,64}$`)

// NormalizeAddress returns the canonical 0x-prefixed, zero-padded lowercase
// form of a Sui address or object id. Short forms like "0x6" are accepted.
func NormalizeAddress(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(strings.TrimPrefix(body, "0x"), "0X")
	if !hexBodyPattern.MatchString(body) {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid sui address %q", raw))
	}
	return "0x" + strings.Repeat("0", 64-len(body)) + strings.ToLower(body), nil
}

// AddressBytes decodes a Sui address or object id into its fixed-width form.
func AddressBytes(raw string) ([AddressLength]byte, error) {
	var out [AddressLength]byte
	normalized, err := NormalizeAddress(raw)
	if err != nil {
		return out, err
	}
	decoded, err := hex.DecodeString(normalized[2:])
	if err != nil {
		return out, clierr.Wrap(clierr.CodeUsage, "decode sui address", err)
	}
	copy(out[:], decoded)
	return out, nil
}

// SameAddress compares two addresses after normalization.
func SameAddress(a, b string) bool {
	na, errA := NormalizeAddress(a)
	nb, errB := NormalizeAddress(b)
	return errA == nil && errB == nil && na == nb
}

// TypeTag is a parsed Move struct type such as 0x2::coin::Coin<0x2::sui::SUI>.
type TypeTag struct {
	Address string
	Module  string
	Name    string
	Params  []TypeTag
}

func (t TypeTag) String() string {
	var b strings.Builder
	b.WriteString(t.Address)
	b.WriteString("::")
	b.WriteString(t.Module)
	b.WriteString("::")
	b.WriteString(t.Name)
	if len(t.Params) > 0 {
		b.WriteString("<")
		for i, p := range t.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		b.WriteString(">")
	}
	return b.String()
}

// ParseTypeTag parses a fully qualified Move struct type with optional
// generic parameters. The address is normalized.
func ParseTypeTag(raw string) (TypeTag, error) {
	tag, rest, err := parseTypeTag(strings.TrimSpace(raw))
	if err != nil {
		return TypeTag{}, err
	}
	if strings.TrimSpace(rest) != "" {
		return TypeTag{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unexpected trailing input in type %q", raw))
	}
	return tag, nil
}

func parseTypeTag(s string) (TypeTag, string, error) {
	s = strings.TrimSpace(s)
	end := strings.IndexAny(s, "<>,")
	head := s
	rest := ""
	if end >= 0 {
		head = s[:end]
		rest = s[end:]
	}
	parts := strings.Split(strings.TrimSpace(head), "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return TypeTag{}, "", clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid move type %q", s))
	}
	addr, err := NormalizeAddress(parts[0])
	if err != nil {
		return TypeTag{}, "", err
	}
	tag := TypeTag{Address: addr, Module: parts[1], Name: parts[2]}
	if !strings.HasPrefix(rest, "<") {
		return tag, rest, nil
	}
	rest = rest[1:]
	for {
		param, remaining, err := parseTypeTag(rest)
		if err != nil {
			return TypeTag{}, "", err
		}
		tag.Params = append(tag.Params, param)
		remaining = strings.TrimSpace(remaining)
		switch {
		case strings.HasPrefix(remaining, ","):
			rest = remaining[1:]
		case strings.HasPrefix(remaining, ">"):
			return tag, remaining[1:], nil
		default:
			return TypeTag{}, "", clierr.New(clierr.CodeUsage, fmt.Sprintf("unterminated type parameters in %q", s))
		}
	}
}

// ShortAddress renders the last four characters of an address for log lines.
func ShortAddress(addr string) string {
	if len(addr) <= 4 {
		return addr
	}
	return "0x..." + addr[len(addr)-4:]
}

// ShortDigest renders a transaction digest as head...tail.
func ShortDigest(digest string) string {
	if len(digest) < 10 {
		return digest
	}
	return digest[:4] + "..." + digest[len(digest)-4:]
}
