// Package ibe implements the Boneh-Franklin identity-based encryption scheme
// over the BLS12-381 pairing, in the two orientations a drand-style
// unchained randomness beacon can use: the chain public key living on G1
// with signatures on G2, or the reverse.
//
// The "identity" encrypted against is always a beacon round number. Plaintext
// is fixed at 16 bytes; callers that need to encrypt more build a hybrid
// scheme on top (see the root tlock package).
package ibe

import (
	"crypto/rand"
	"errors"

	"github.com/drand/kyber"
	bls "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/pairing"
)

// Sizes mandated by the wire format: the primitive only ever handles a
// 16-byte payload masked by a 32-byte nonce.
const (
	PlaintextSize = 16
	NonceSize     = 32
)

var (
	// ErrInvalidPublicKey is returned when a chain public key is not a
	// recognized compressed point on G1 or G2, or fails its subgroup check.
	ErrInvalidPublicKey = errors.New("ibe: invalid public key")
	// ErrInvalidSignature is returned when a beacon signature does not lie
	// in the group opposite the ciphertext's U.
	ErrInvalidSignature = errors.New("ibe: invalid signature")
	// ErrInvalidCiphertext is returned for malformed (U, V, W) triples and
	// for ciphertexts that fail the decryption consistency check.
	ErrInvalidCiphertext = errors.New("ibe: invalid ciphertext")
	// ErrPointNotInSubgroup is returned by Decrypt when U or the signature
	// does not belong to the prime-order subgroup.
	ErrPointNotInSubgroup = errors.New("ibe: point not in prime-order subgroup")
	// ErrRngFailure is returned when the entropy source used to sample the
	// per-encryption nonce fails.
	ErrRngFailure = errors.New("ibe: rng failure")
)

// Ciphertext is the Boneh-Franklin triple (U, V, W). U lies in the same
// group as the chain public key it was encrypted against; V is always 32
// bytes and W is always 16 bytes.
type Ciphertext struct {
	U kyber.Point
	V []byte
	W []byte
}

// groupKind identifies which BLS12-381 group a point concretely belongs to.
type groupKind int

const (
	unknownGroup groupKind = iota
	g1Group
	g2Group
)

func kindOf(p kyber.Point) groupKind {
	switch p.(type) {
	case *bls.KyberG1:
		return g1Group
	case *bls.KyberG2:
		return g2Group
	default:
		return unknownGroup
	}
}

// orientation captures which group carries the public key/U (own) and which
// carries the signature/identity point (other), along with a pairing
// function that always calls the bilinear map with its G1 argument first.
// Encrypt/Decrypt are written once against this abstraction and
// instantiated twice, so no conditional ever reaches into the inner
// primitive itself.
type orientation struct {
	ownKind   groupKind
	otherKind groupKind
	own       func() kyber.Group
	other     func() kyber.Group
	pair      func(own, other kyber.Point) kyber.Point
}

func suite() pairing.Suite {
	return bls.NewBLS12381Suite()
}

var g1Orientation = orientation{
	ownKind:   g1Group,
	otherKind: g2Group,
	own:       func() kyber.Group { return suite().G1() },
	other:     func() kyber.Group { return suite().G2() },
	pair:      func(own, other kyber.Point) kyber.Point { return suite().Pair(own, other) },
}

var g2Orientation = orientation{
	ownKind:   g2Group,
	otherKind: g1Group,
	own:       func() kyber.Group { return suite().G2() },
	other:     func() kyber.Group { return suite().G1() },
	pair:      func(own, other kyber.Point) kyber.Point { return suite().Pair(other, own) },
}

func orientationOf(p kyber.Point) (orientation, bool) {
	switch kindOf(p) {
	case g1Group:
		return g1Orientation, true
	case g2Group:
		return g2Orientation, true
	default:
		return orientation{}, false
	}
}

// inCorrectSubgroup reports whether p lies in the prime-order subgroup.
// Unmarshaling a compressed point only checks that it is on the curve, so
// every externally supplied point is checked here before it reaches a
// pairing or scalar multiplication.
func inCorrectSubgroup(p kyber.Point) bool {
	sub, ok := p.(interface{ IsInCorrectGroup() bool })
	return !ok || sub.IsInCorrectGroup()
}

// Encrypt runs Boneh-Franklin encryption of a 16-byte plaintext against a
// chain public key for the given beacon round. The orientation (which group
// the public key lives in) is dispatched from the concrete type of pk,
// itself selected at parse time by the public key's compressed byte length.
func Encrypt(pk kyber.Point, round uint64, plaintext []byte) (*Ciphertext, error) {
	if len(plaintext) != PlaintextSize {
		return nil, ErrInvalidCiphertext
	}

	o, ok := orientationOf(pk)
	if !ok {
		return nil, ErrInvalidPublicKey
	}

	if pk.Equal(o.own().Point().Null()) {
		return nil, ErrInvalidPublicKey
	}

	if !inCorrectSubgroup(pk) {
		return nil, ErrInvalidPublicKey
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, ErrRngFailure
	}

	r := h3(nonce, plaintext, o.own())

	u := o.own().Point().Mul(r, nil)

	qid, err := h1(round, o.other())
	if err != nil {
		return nil, err
	}

	rpk := o.own().Point().Mul(r, pk)
	gidr := o.pair(rpk, qid)

	mask, err := h2(gidr)
	if err != nil {
		return nil, err
	}

	v := make([]byte, NonceSize)
	xor(v, nonce, mask[:NonceSize])

	w := make([]byte, PlaintextSize)
	xor(w, plaintext, h4(nonce))

	return &Ciphertext{U: u, V: v, W: w}, nil
}

// Decrypt recovers the 16-byte plaintext from a ciphertext given the beacon
// signature for the round it was encrypted against. The signature must lie
// in the group opposite U; this is checked by concrete type before any
// pairing is computed.
func Decrypt(signature kyber.Point, ct *Ciphertext) ([]byte, error) {
	if ct == nil || ct.U == nil || len(ct.V) != NonceSize || len(ct.W) != PlaintextSize {
		return nil, ErrInvalidCiphertext
	}

	o, ok := orientationOf(ct.U)
	if !ok {
		return nil, ErrInvalidCiphertext
	}

	if ct.U.Equal(o.own().Point().Null()) {
		return nil, ErrInvalidCiphertext
	}

	if !inCorrectSubgroup(ct.U) {
		return nil, ErrPointNotInSubgroup
	}

	if kindOf(signature) != o.otherKind {
		return nil, ErrInvalidSignature
	}

	if !inCorrectSubgroup(signature) {
		return nil, ErrPointNotInSubgroup
	}

	gidr := o.pair(ct.U, signature)

	mask, err := h2(gidr)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	xor(nonce, ct.V, mask[:NonceSize])

	plaintext := make([]byte, PlaintextSize)
	xor(plaintext, ct.W, h4(nonce))

	r := h3(nonce, plaintext, o.own())
	check := o.own().Point().Mul(r, nil)
	if !check.Equal(ct.U) {
		return nil, ErrInvalidCiphertext
	}

	return plaintext, nil
}
