// Package fixed implements tlock.Network without any networking: it carries
// a chain's public key, scheme, and period/genesis arithmetic, plus
// optionally a single pre-fetched signature, so that encryption and
// offline-decryptable identities work without a live beacon connection.
package fixed

import (
	"encoding/json"
	"errors"
	"time"

	chain "github.com/drand/drand/v2/common"
	"github.com/drand/drand/v2/crypto"
	"github.com/drand/kyber"
)

// ErrNotUnchained is returned when the supplied scheme is not one of the
// unchained schemes tlock's "round number is the identity" assumption
// requires.
var ErrNotUnchained = errors.New("fixed: not an unchained scheme")

// Network is a tlock.Network backed by static, caller-supplied data.
type Network struct {
	chainHash string
	publicKey kyber.Point
	scheme    *crypto.Scheme
	period    time.Duration
	genesis   int64
	fixedSig  []byte
}

func supportedScheme(name string) bool {
	switch name {
	case crypto.UnchainedSchemeID, crypto.SigsOnG1ID, crypto.ShortSigSchemeID, crypto.BN254UnchainedOnG1SchemeID:
		return true
	default:
		return false
	}
}

// NewNetwork builds a Network from already-known chain parameters. sig may
// be nil; it is only required before Signature is called for decryption.
func NewNetwork(chainHash string, publicKey kyber.Point, sch *crypto.Scheme, period time.Duration, genesis int64, sig []byte) (*Network, error) {
	if sch != nil && !supportedScheme(sch.Name) {
		return nil, ErrNotUnchained
	}

	return &Network{
		chainHash: chainHash,
		publicKey: publicKey,
		scheme:    sch,
		period:    period,
		genesis:   genesis,
		fixedSig:  sig,
	}, nil
}

// chainInfo mirrors the subset of a drand chain-info JSON document this
// package needs to reconstruct a Network offline.
type chainInfo struct {
	PublicKey   chain.HexBytes `json:"public_key"`
	Period      int64          `json:"period"`
	Scheme      string         `json:"scheme"`
	GenesisTime int64          `json:"genesis_time"`
	ChainHash   string         `json:"hash"`
}

// FromInfo builds a Network from a drand chain-info JSON document, the same
// shape `drand get chain-info` or a recipient's embedded metadata supplies.
func FromInfo(jsonInfo string) (*Network, error) {
	var info chainInfo
	if err := json.Unmarshal([]byte(jsonInfo), &info); err != nil {
		return nil, err
	}

	sch, err := crypto.SchemeFromName(info.Scheme)
	if err != nil {
		return nil, err
	}

	public := sch.KeyGroup.Point()
	if err := public.UnmarshalBinary(info.PublicKey); err != nil {
		return nil, err
	}

	return NewNetwork(info.ChainHash, public, sch, time.Duration(info.Period)*time.Second, info.GenesisTime, nil)
}

// SetSignature installs (or replaces) the fixed signature this network
// reports for every Signature call, regardless of requested round. Callers
// are responsible for only using it for the round it was actually fetched
// for.
func (n *Network) SetSignature(sig []byte) {
	n.fixedSig = sig
}

// ChainHash returns the chain hash for this network.
func (n *Network) ChainHash() string {
	return n.chainHash
}

// PublicKey returns the kyber point needed for encryption and decryption.
func (n *Network) PublicKey() kyber.Point {
	return n.publicKey
}

// Scheme returns the drand crypto Scheme used by the network.
func (n *Network) Scheme() crypto.Scheme {
	if n.scheme == nil {
		return crypto.Scheme{}
	}
	return *n.scheme
}

// Signature returns the fixed signature this network was constructed or
// later armed with, ignoring the requested round: callers that need
// per-round signatures should use networks/http instead.
func (n *Network) Signature(_ uint64) ([]byte, error) {
	if n.fixedSig == nil {
		return nil, errors.New("fixed: no signature configured")
	}
	return n.fixedSig, nil
}

// RoundNumber returns the round number active at t, computed purely from
// genesis time and period with no network call.
func (n *Network) RoundNumber(t time.Time) uint64 {
	if n.period <= 0 {
		return 0
	}
	return uint64(((t.Unix() - n.genesis) / int64(n.period.Seconds())) + 1)
}

// SwitchChainHash replaces the chain hash this network reports, the way
// tlock.Identity expects when TrustChainHash lets it follow a stanza to a
// different chain than it started with.
func (n *Network) SwitchChainHash(hash string) error {
	n.chainHash = hash
	return nil
}
