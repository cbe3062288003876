package bech32_test

import (
	"testing"

	"github.com/tlockio/tlock/internal/bech32"
)

func TestBech32_Valid(t *testing.T) {
	tests := []string{
		"a12uel5l",
		"an83characterlonghumanreadablepartthatcontainsthenumber1andtheexcludedcharactersbio1tt5tgs",
		"abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw",
		"11qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqc8247j",
		"split1checkupstagehandshakeupstreamerranterredcaperred2y9e3w",
	}

	for _, tt := range tests {
		if _, _, err := bech32.Decode(tt); err != nil {
			t.Errorf("Decode(%q): unexpected error: %v", tt, err)
		}
	}
}

func TestBech32_Invalid(t *testing.T) {
	tests := []string{
		"split1checkupstagehandshakeupstreamerranterredcaperred2y9e2w", // bad checksum
		"split1cheo2y9e2w",  // invalid character in data part
		"split1a2y9w",       // too short data part
		"1checkupstagehandshakeupstreamerranterredcaperred2y9e3w", // empty hrp
	}

	for _, tt := range tests {
		if _, _, err := bech32.Decode(tt); err == nil {
			t.Errorf("Decode(%q): expected error, got none", tt)
		}
	}
}

func TestBech32_RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0xff, 0x10, 0x20, 0x7f}

	encoded, err := bech32.Encode("age1tlock", data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	hrp, decoded, err := bech32.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if hrp != "age1tlock" {
		t.Fatalf("hrp mismatch: got %q", hrp)
	}
	if len(decoded) != len(data) {
		t.Fatalf("length mismatch: got %d want %d", len(decoded), len(data))
	}
	for i := range data {
		if decoded[i] != data[i] {
			t.Fatalf("byte %d mismatch: got %x want %x", i, decoded[i], data[i])
		}
	}
}

func TestBech32_MixedCaseRejected(t *testing.T) {
	if _, _, err := bech32.Decode("aGe1TLOCKqpzry9x8gf2tvdw0s3jn54khce6mua7l"); err == nil {
		t.Fatalf("expected error for mixed-case string")
	}
}
