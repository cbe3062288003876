package ibe

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/drand/kyber"
)

// Domain separation prefixes for H2/H3/H4. Each hash gadget is SHA-256 under
// a distinct label so that no two of them can ever collide on the same
// input. The literal tag bytes match drand's IBE implementation.
var (
	h2Label = []byte("IBE-H2")
	h3Label = []byte("IBE-H3")
	h4Label = []byte("IBE-H4")
)

// curveHasher is implemented by kyber-bls12381's point types; it performs
// the RFC 9380 XMD:SHA-256 hash-to-curve. The domain separation tag is the
// library's own, baked into the point's group at construction time, and is
// what drand itself hashes beacon messages with; this package deliberately
// does not carry its own copy of the tag bytes.
type curveHasher interface {
	Hash(msg []byte) kyber.Point
}

// h1 hashes a beacon round number into a point of the given group, the way
// drand hashes an unchained beacon's round number into its signature group.
func h1(round uint64, group kyber.Group) (kyber.Point, error) {
	var roundBytes [8]byte
	binary.BigEndian.PutUint64(roundBytes[:], round)
	digest := sha256.Sum256(roundBytes[:])

	p := group.Point()
	hasher, ok := p.(curveHasher)
	if !ok {
		return nil, ErrInvalidPublicKey
	}

	return hasher.Hash(digest[:]), nil
}

// h2 compresses a Gt element and derives 32 pseudorandom bytes used to mask
// the nonce.
func h2(gt kyber.Point) ([]byte, error) {
	raw, err := gt.MarshalBinary()
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	h.Write(h2Label)
	h.Write(raw)

	return h.Sum(nil), nil
}

// h3 derives the ephemeral scalar r from the nonce and the plaintext,
// binding the two together so that the ciphertext triple can be checked for
// consistency on decryption.
func h3(nonce, plaintext []byte, group kyber.Group) kyber.Scalar {
	h := sha256.New()
	h.Write(h3Label)
	h.Write(nonce)
	h.Write(plaintext)
	digest := h.Sum(nil)

	return group.Scalar().SetBytes(digest)
}

// h4 derives the 16-byte mask used to hide the plaintext.
func h4(nonce []byte) []byte {
	h := sha256.New()
	h.Write(h4Label)
	h.Write(nonce)
	digest := h.Sum(nil)

	return digest[:PlaintextSize]
}

func xor(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}
