package hexnum

import (
	"errors"
	"math/big"
	"testing"
)

func TestParseBig(t *testing.T) {
	cases := map[string]int64{
		"0x0":      0,
		"0x5":      5,
		"0X1f":     31,
		"0x00000a": 10,
		"ff":       255,
		"0xABcd":   0xabcd,
	}
	for input, want := range cases {
		got, err := ParseBig(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got.Cmp(big.NewInt(want)) != 0 {
			t.Fatalf("parse %q: got %s want %d", input, got, want)
		}
	}
}

func TestParseBigPaddedTopic(t *testing.T) {
	topic := "0x0000000000000000000000000000000000000000000000000000000000000539"
	got, err := ParseBig(topic)
	if err != nil {
		t.Fatalf("parse topic: %v", err)
	}
	if got.Int64() != 1337 {
		t.Fatalf("topic value mismatch: %s", got)
	}
}

func TestParseBigInvalid(t *testing.T) {
	for _, input := range []string{"", "0x", "0xzz", "-0x1", "+1", "0x1_0", " 0x1", "0x1 "} {
		if _, err := ParseBig(input); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %q, got %v", input, err)
		}
	}
}

func TestParseUint64(t *testing.T) {
	got, err := ParseUint64("0x6194f1d3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 1637151187 {
		t.Fatalf("value mismatch: %d", got)
	}

	if _, err := ParseUint64("0x10000000000000000"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected overflow error, got %v", err)
	}
}
