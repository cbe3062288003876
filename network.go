// Package tlock provides an API for encrypting and decrypting data against a
// future round of a drand-style unchained randomness beacon, using Boneh-
// Franklin identity-based encryption over BLS12-381 as the wrapping scheme
// for a per-message file key.
package tlock

import (
	"time"

	"github.com/drand/drand/v2/crypto"
	"github.com/drand/kyber"
)

// Network represents a beacon chain that can be used to encrypt and decrypt a
// file key: it knows the chain's public key and scheme orientation, can
// report the round number for a given time, and can supply the signature for
// an already-elapsed round. A RoundNumber of 0 means the network cannot map
// times to rounds; callers fall back to attempting the signature fetch.
type Network interface {
	ChainHash() string
	PublicKey() kyber.Point
	Scheme() crypto.Scheme
	Signature(roundNumber uint64) ([]byte, error)
	SwitchChainHash(string) error
	RoundNumber(time.Time) uint64
}
