package tlock

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/tlockio/tlock/internal/bech32"
)

// RecipientHRP is the bech32 human-readable part every tlock recipient
// string is framed with.
const RecipientHRP = "age1tlock"

// IdentityHRP is the bech32 human-readable part every tlock identity string
// is framed with; age-plugin-tlock registers itself under the "tlock"
// plugin name, which filippo.io/age/plugin upper-cases into this HRP.
const IdentityHRP = "AGE-PLUGIN-TLOCK-"

// ErrEncoding is returned for any bech32 parse failure: bad HRP, checksum
// mismatch, or a payload of the wrong length for its declared shape.
var ErrEncoding = errors.New("tlock: encoding error")

const chainHashSize = 32

// ParsedRecipient is the decoded form of a recipient blob: the chain the
// ciphertext targets, its public key, and the genesis/period pair that lets
// a caller translate a wall-clock time into a round number independent of
// any network call.
type ParsedRecipient struct {
	ChainHash [chainHashSize]byte
	PublicKey []byte // compressed G1 or G2 point, orientation by length
	Genesis   uint64
	Period    uint32
}

// EncodeRecipient serializes a recipient blob: chain hash (32B) || chain
// public key (48B or 96B) || genesis (u64 BE) || period (u32 BE), bech32
// framed under RecipientHRP.
//
// genesis=0 and period=0 together are the sentinel for "unset"; the caller
// is responsible for not emitting that combination unintentionally.
func EncodeRecipient(chainHash [chainHashSize]byte, publicKey []byte, genesis uint64, period uint32) (string, error) {
	body, err := RecipientBody(chainHash, publicKey, genesis, period)
	if err != nil {
		return "", err
	}

	s, err := bech32.Encode(RecipientHRP, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	return s, nil
}

// RecipientBody builds the raw (pre-bech32) payload a recipient blob
// carries: chain hash (32B) || chain public key (48B or 96B) || genesis (u64
// BE) || period (u32 BE). age plugin hosts (see cmd/age-plugin-tlock) that
// let filippo.io/age/plugin own the bech32 framing need this payload
// directly, without re-deriving it from a full recipient string.
func RecipientBody(chainHash [chainHashSize]byte, publicKey []byte, genesis uint64, period uint32) ([]byte, error) {
	if len(publicKey) != 48 && len(publicKey) != 96 {
		return nil, fmt.Errorf("%w: public key must be 48 or 96 bytes, got %d", ErrEncoding, len(publicKey))
	}

	body := make([]byte, 0, chainHashSize+len(publicKey)+8+4)
	body = append(body, chainHash[:]...)
	body = append(body, publicKey...)
	body = binary.BigEndian.AppendUint64(body, genesis)
	body = binary.BigEndian.AppendUint32(body, period)

	return body, nil
}

// ParseRecipient decodes a recipient blob produced by EncodeRecipient.
func ParseRecipient(s string) (*ParsedRecipient, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if hrp != RecipientHRP {
		return nil, fmt.Errorf("%w: unexpected HRP %q", ErrEncoding, hrp)
	}

	return DecodeRecipientBody(data)
}

// DecodeRecipientBody parses a recipient's raw payload, already stripped of
// its bech32 framing -- the shape filippo.io/age/plugin hands a registered
// recipient callback.
func DecodeRecipientBody(data []byte) (*ParsedRecipient, error) {
	if len(data) != chainHashSize+48+8+4 && len(data) != chainHashSize+96+8+4 {
		return nil, fmt.Errorf("%w: recipient payload has unexpected length %d", ErrEncoding, len(data))
	}

	pkLen := len(data) - chainHashSize - 8 - 4

	var out ParsedRecipient
	copy(out.ChainHash[:], data[:chainHashSize])
	out.PublicKey = append([]byte(nil), data[chainHashSize:chainHashSize+pkLen]...)
	out.Genesis = binary.BigEndian.Uint64(data[chainHashSize+pkLen : chainHashSize+pkLen+8])
	out.Period = binary.BigEndian.Uint32(data[chainHashSize+pkLen+8:])

	if out.Genesis == 0 && out.Period == 0 {
		return nil, fmt.Errorf("%w: genesis=0 and period=0 is the unset sentinel", ErrEncoding)
	}

	return &out, nil
}

// IdentityKind is the one-byte type tag leading an identity payload.
type IdentityKind byte

const (
	// RawIdentity carries the beacon signature for a single round directly;
	// it is usable fully offline.
	RawIdentity IdentityKind = 0
	// HTTPIdentity carries a base URL; the signature is fetched per round
	// by appending "/public/<round>" and invoking a caller-supplied Fetcher.
	HTTPIdentity IdentityKind = 1
)

// ParsedIdentity is the decoded form of an identity blob.
type ParsedIdentity struct {
	Kind      IdentityKind
	Signature []byte // set when Kind == RawIdentity
	URL       string // set when Kind == HTTPIdentity
}

// EncodeRawIdentity frames a raw beacon signature as an identity blob.
func EncodeRawIdentity(signature []byte) (string, error) {
	return encodeIdentity(RawIdentityBody(signature))
}

// EncodeHTTPIdentity frames a beacon base URL as an identity blob.
func EncodeHTTPIdentity(baseURL string) (string, error) {
	return encodeIdentity(HTTPIdentityBody(baseURL))
}

// encodeIdentity bech32-frames an identity payload. Identity strings are
// all-uppercase by the age plugin convention, so the HRP is lowercased for
// the checksum and the whole string upcased afterwards.
func encodeIdentity(body []byte) (string, error) {
	s, err := bech32.Encode(strings.ToLower(IdentityHRP), body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return strings.ToUpper(s), nil
}

// RawIdentityBody builds the raw (pre-bech32) payload for a signature-backed
// identity.
func RawIdentityBody(signature []byte) []byte {
	return append([]byte{byte(RawIdentity)}, signature...)
}

// HTTPIdentityBody builds the raw (pre-bech32) payload for a URL-backed
// identity.
func HTTPIdentityBody(baseURL string) []byte {
	return append([]byte{byte(HTTPIdentity)}, []byte(baseURL)...)
}

// ParseIdentity decodes an identity blob produced by EncodeRawIdentity or
// EncodeHTTPIdentity.
func ParseIdentity(s string) (*ParsedIdentity, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if !strings.EqualFold(hrp, IdentityHRP) {
		return nil, fmt.Errorf("%w: unexpected HRP %q", ErrEncoding, hrp)
	}

	return DecodeIdentityBody(data)
}

// DecodeIdentityBody parses an identity's raw payload, already stripped of
// its bech32 framing -- the shape filippo.io/age/plugin hands a registered
// identity callback.
func DecodeIdentityBody(data []byte) (*ParsedIdentity, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty identity payload", ErrEncoding)
	}

	switch IdentityKind(data[0]) {
	case RawIdentity:
		return &ParsedIdentity{Kind: RawIdentity, Signature: append([]byte(nil), data[1:]...)}, nil
	case HTTPIdentity:
		return &ParsedIdentity{Kind: HTTPIdentity, URL: string(data[1:])}, nil
	default:
		return nil, fmt.Errorf("%w: unknown identity type tag %d", ErrEncoding, data[0])
	}
}

// Fetcher maps a beacon base URL and round number to that round's signature
// bytes. The core never embeds an HTTP client itself (see DESIGN.md); the
// host process supplies this callback, which keeps IBE encrypt/decrypt
// deterministic and independently testable offline.
type Fetcher func(ctx context.Context, baseURL string, round uint64) ([]byte, error)

// FetchSignature resolves an HTTP identity's signature for round using the
// supplied Fetcher. It exists only to give the (baseURL, round) -> bytes
// contract a single named call site; it performs no IO of its own.
func FetchSignature(ctx context.Context, fetch Fetcher, baseURL string, round uint64) ([]byte, error) {
	if fetch == nil {
		return nil, fmt.Errorf("%w: no fetcher configured for HTTP identity", ErrBeaconUnavailable)
	}

	sig, err := fetch(ctx, baseURL, round)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBeaconUnavailable, err)
	}

	return sig, nil
}

// ErrBeaconUnavailable is returned when an HTTP identity's fetch fails.
var ErrBeaconUnavailable = errors.New("tlock: beacon unavailable")
