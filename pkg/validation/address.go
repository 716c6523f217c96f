package validation

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Accepted wallet address lengths in hex characters (without 0x):
// 40 for 20-byte EVM style addresses, 44 for 22-byte Core addresses.
var addressLengths = map[int]bool{40: true, 44: true}

// ValidateAddress validates a wallet address format
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	normalized := strings.TrimPrefix(addr, "0x")
	normalized = strings.TrimPrefix(normalized, "0X")

	if !addressLengths[len(normalized)] {
		return fmt.Errorf("invalid address length: expected 40 or 44 characters (without 0x), got %d", len(normalized))
	}

	if _, err := hex.DecodeString(normalized); err != nil {
		return fmt.Errorf("invalid hex address: %w", err)
	}

	return nil
}

// ValidateOptionalAddress accepts an empty address, otherwise behaves like ValidateAddress.
func ValidateOptionalAddress(addr string) error {
	if addr == "" {
		return nil
	}
	return ValidateAddress(addr)
}

// NormalizeAddress converts an address to lowercase without 0x prefix
func NormalizeAddress(addr string) string {
	addr = strings.TrimPrefix(addr, "0x")
	addr = strings.TrimPrefix(addr, "0X")
	return strings.ToLower(addr)
}

// ValidateEmail checks that the value is a syntactically valid email address.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}

// NormalizeEmail lowercases and trims an email so uniqueness checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
