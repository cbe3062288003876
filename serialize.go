package tlock

import (
	"errors"
	"fmt"

	"github.com/drand/kyber"
	bls "github.com/drand/kyber-bls12381"

	"github.com/tlockio/tlock/ibe"
)

// ErrInvalidChainPublicKey is returned when a chain's reported public key is
// neither a valid G1 nor G2 compressed point.
var ErrInvalidChainPublicKey = errors.New("tlock: invalid chain public key")

// TimeLock runs IBE encryption of a file key against a chain's public key for
// the given round, producing the (U, V, W) triple a tlock stanza carries.
func TimeLock(publicKey kyber.Point, roundNumber uint64, fileKey []byte) (*ibe.Ciphertext, error) {
	ct, err := ibe.Encrypt(publicKey, roundNumber, fileKey)
	if err != nil {
		return nil, fmt.Errorf("ibe encrypt: %w", err)
	}

	return ct, nil
}

// TimeUnlock recovers a file key from a ciphertext given the beacon's
// signature over the round it was encrypted against.
func TimeUnlock(signature []byte, ct *ibe.Ciphertext) ([]byte, error) {
	sig, err := unmarshalSignature(signature, ct)
	if err != nil {
		return nil, err
	}

	fileKey, err := ibe.Decrypt(sig, ct)
	if err != nil {
		return nil, fmt.Errorf("ibe decrypt: %w", err)
	}

	return fileKey, nil
}

// unmarshalSignature parses raw signature bytes into the group opposite the
// ciphertext's U, the only group a valid signature for that ciphertext could
// possibly lie in.
func unmarshalSignature(raw []byte, ct *ibe.Ciphertext) (kyber.Point, error) {
	if ct == nil || ct.U == nil {
		return nil, ibe.ErrInvalidCiphertext
	}

	switch ct.U.(type) {
	case *bls.KyberG1:
		var sig bls.KyberG2
		if err := sig.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ibe.ErrInvalidSignature, err)
		}
		return &sig, nil
	case *bls.KyberG2:
		var sig bls.KyberG1
		if err := sig.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ibe.ErrInvalidSignature, err)
		}
		return &sig, nil
	default:
		return nil, ibe.ErrInvalidCiphertext
	}
}

// CiphertextToBytes serializes an IBE ciphertext into the deterministic wire
// layout of a tlock stanza body: compress(U) || V || W.
func CiphertextToBytes(ct *ibe.Ciphertext) ([]byte, error) {
	u, err := ct.U.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal U: %w", err)
	}

	body := make([]byte, 0, len(u)+len(ct.V)+len(ct.W))
	body = append(body, u...)
	body = append(body, ct.V...)
	body = append(body, ct.W...)

	return body, nil
}

// BytesToCiphertext parses a stanza body back into an IBE ciphertext. The
// orientation is recovered from the body's total length: 96 bytes is a
// G1-PK ciphertext (48-byte U), 144 bytes is a G2-PK ciphertext (96-byte U).
func BytesToCiphertext(body []byte) (*ibe.Ciphertext, error) {
	var u kyber.Point
	var uLen int

	switch len(body) {
	case 48 + ibe.NonceSize + ibe.PlaintextSize:
		u = new(bls.KyberG1)
		uLen = 48
	case 96 + ibe.NonceSize + ibe.PlaintextSize:
		u = new(bls.KyberG2)
		uLen = 96
	default:
		return nil, fmt.Errorf("%w: body length %d is not a valid ciphertext size", ibe.ErrInvalidCiphertext, len(body))
	}

	if err := u.UnmarshalBinary(body[:uLen]); err != nil {
		return nil, fmt.Errorf("%w: unmarshal U: %v", ibe.ErrInvalidCiphertext, err)
	}

	// Unmarshaling only checks the point is on the curve.
	if sub, ok := u.(interface{ IsInCorrectGroup() bool }); ok && !sub.IsInCorrectGroup() {
		return nil, fmt.Errorf("%w: U not in prime-order subgroup", ibe.ErrInvalidCiphertext)
	}

	v := make([]byte, ibe.NonceSize)
	copy(v, body[uLen:uLen+ibe.NonceSize])

	w := make([]byte, ibe.PlaintextSize)
	copy(w, body[uLen+ibe.NonceSize:])

	return &ibe.Ciphertext{U: u, V: v, W: w}, nil
}

// ParsePublicKey parses a chain's reported public key into the concrete
// kyber point matching its compressed length, dispatching orientation by
// byte length the way every encrypt/decrypt entry point in this package does.
func ParsePublicKey(raw []byte) (kyber.Point, error) {
	suite := bls.NewBLS12381Suite()

	switch len(raw) {
	case suite.G1().PointLen():
		var p bls.KyberG1
		if err := p.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidChainPublicKey, err)
		}
		if !p.IsInCorrectGroup() {
			return nil, fmt.Errorf("%w: not in prime-order subgroup", ErrInvalidChainPublicKey)
		}
		return &p, nil
	case suite.G2().PointLen():
		var p bls.KyberG2
		if err := p.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidChainPublicKey, err)
		}
		if !p.IsInCorrectGroup() {
			return nil, fmt.Errorf("%w: not in prime-order subgroup", ErrInvalidChainPublicKey)
		}
		return &p, nil
	default:
		return nil, ErrInvalidChainPublicKey
	}
}
