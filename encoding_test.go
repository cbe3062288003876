package tlock

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/tlockio/tlock/internal/bech32"
)

func mustHexChainHash(t *testing.T, s string) [chainHashSize]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex decode: %v", err)
	}
	var out [chainHashSize]byte
	copy(out[:], b)
	return out
}

// V6: encode a recipient with the V1 chain hash, genesis = 1677685200,
// period = 3, parse it back, re-encode, and expect byte-identical strings.
func Test_Recipient_RoundTrip_V6(t *testing.T) {
	chainHash := mustHexChainHash(t, "7672797f548f3f4748ac4bf3352fc6c6b6468c9ad40ad456a397545c6e2df5bf")
	pk := make([]byte, 48)
	pk[0] = 0x80 // compressed-point marker byte, arbitrary test content

	const genesis = 1677685200
	const period = 3

	encoded, err := EncodeRecipient(chainHash, pk, genesis, period)
	if err != nil {
		t.Fatalf("EncodeRecipient: %v", err)
	}

	parsed, err := ParseRecipient(encoded)
	if err != nil {
		t.Fatalf("ParseRecipient: %v", err)
	}
	if parsed.Genesis != genesis || parsed.Period != period {
		t.Fatalf("genesis/period mismatch: got (%d,%d)", parsed.Genesis, parsed.Period)
	}
	if !bytes.Equal(parsed.PublicKey, pk) {
		t.Fatalf("public key mismatch")
	}

	reEncoded, err := EncodeRecipient(parsed.ChainHash, parsed.PublicKey, parsed.Genesis, parsed.Period)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if reEncoded != encoded {
		t.Fatalf("round-trip mismatch:\n got: %s\nwant: %s", reEncoded, encoded)
	}
}

func Test_Recipient_UnsetSentinelRejected(t *testing.T) {
	var chainHash [chainHashSize]byte
	pk := make([]byte, 48)

	encoded, err := EncodeRecipient(chainHash, pk, 0, 0)
	if err != nil {
		t.Fatalf("EncodeRecipient: %v", err)
	}
	if _, err := ParseRecipient(encoded); err == nil {
		t.Fatalf("expected error for genesis=0,period=0 sentinel")
	}
}

func Test_Recipient_WrongHRPRejected(t *testing.T) {
	body, err := RecipientBody([chainHashSize]byte{}, make([]byte, 48), 1, 1)
	if err != nil {
		t.Fatalf("RecipientBody: %v", err)
	}
	// A well-formed bech32 string with a valid payload, so that only the HRP
	// check can reject it.
	s, err := bech32.Encode("age1wrongprefix", body)
	if err != nil {
		t.Fatalf("bech32.Encode: %v", err)
	}
	if _, err := ParseRecipient(s); err == nil {
		t.Fatalf("expected error for unknown HRP")
	}
}

func Test_Identity_Raw_RoundTrip(t *testing.T) {
	sig := bytes.Repeat([]byte{0xAB}, 48)

	encoded, err := EncodeRawIdentity(sig)
	if err != nil {
		t.Fatalf("EncodeRawIdentity: %v", err)
	}

	parsed, err := ParseIdentity(encoded)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if parsed.Kind != RawIdentity {
		t.Fatalf("expected RawIdentity, got %v", parsed.Kind)
	}
	if !bytes.Equal(parsed.Signature, sig) {
		t.Fatalf("signature mismatch")
	}
}

func Test_Identity_HTTP_RoundTrip(t *testing.T) {
	const url = "https://api.drand.sh/52db9ba70e0cc0f6eaf7803dd07447a1f5477735fd3f661792ba94600c84e97"

	encoded, err := EncodeHTTPIdentity(url)
	if err != nil {
		t.Fatalf("EncodeHTTPIdentity: %v", err)
	}

	parsed, err := ParseIdentity(encoded)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if parsed.Kind != HTTPIdentity {
		t.Fatalf("expected HTTPIdentity, got %v", parsed.Kind)
	}
	if parsed.URL != url {
		t.Fatalf("URL mismatch: got %q want %q", parsed.URL, url)
	}
}
