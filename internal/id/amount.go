package id

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParseBaseUnits parses a non-negative integer base-unit string.
func ParseBaseUnits(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "-") {
		return nil, clierr.New(clierr.CodeUsage, "amount must be non-negative")
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, "amount must be an integer string of base units")
	}
	return n, nil
}

// ParseUnits converts a decimal token quantity like "1.25" into base units.
// Precision beyond the asset's decimals is rejected rather than truncated.
func ParseUnits(decimal string, decimals int32) (*big.Int, error) {
	decimal = strings.TrimSpace(decimal)
	if !decimalPattern.MatchString(decimal) {
		return nil, clierr.New(clierr.CodeUsage, "amount must be in decimal form like 1.23")
	}
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > int(decimals) {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}
	fracPart += strings.Repeat("0", int(decimals)-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, "invalid decimal amount")
	}
	return n, nil
}

// FormatUnits renders base units as a trimmed decimal string.
func FormatUnits(baseUnits *big.Int, decimals int32) string {
	if baseUnits == nil {
		return "0"
	}
	neg := baseUnits.Sign() < 0
	s := new(big.Int).Abs(baseUnits).String()
	if decimals > 0 {
		d := int(decimals)
		if len(s) <= d {
			s = strings.Repeat("0", d-len(s)+1) + s
		}
		intPart := s[:len(s)-d]
		fracPart := strings.TrimRight(s[len(s)-d:], "0")
		s = intPart
		if fracPart != "" {
			s += "." + fracPart
		}
	}
	if neg {
		return "-" + s
	}
	return s
}
