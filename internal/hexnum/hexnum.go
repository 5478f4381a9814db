// Package hexnum decodes the base-16 integers carried by explorer responses:
// topics, timestamps and block numbers all go through the same parser.
package hexnum

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalid is returned for any input that is not a plain hex number.
var ErrInvalid = errors.New("invalid hex number")

// ParseBig parses an optionally 0x-prefixed, case-insensitive hex string.
// Leading zeros are accepted, so zero-padded 32-byte topics decode as-is.
func ParseBig(input string) (*big.Int, error) {
	digits := input
	if has0xPrefix(digits) {
		digits = digits[2:]
	}
	if digits == "" {
		return nil, fmt.Errorf("%w: %q has no digits", ErrInvalid, input)
	}
	for i := 0; i < len(digits); i++ {
		if !isHexDigit(digits[i]) {
			return nil, fmt.Errorf("%w: %q", ErrInvalid, input)
		}
	}

	value, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, input)
	}
	return value, nil
}

// ParseUint64 parses a hex string that must fit in 64 bits.
func ParseUint64(input string) (uint64, error) {
	value, err := ParseBig(input)
	if err != nil {
		return 0, err
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows uint64", ErrInvalid, input)
	}
	return value.Uint64(), nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
