// Package http implements tlock.Network against a live drand HTTP endpoint.
// The cryptographic core never touches the network itself; this package is
// the collaborator that fetches chain info and round signatures for it.
package http

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drand/drand/v2/crypto"

	dhttp "github.com/drand/go-clients/client/http"
	dclient "github.com/drand/go-clients/drand"
	"github.com/drand/kyber"
)

// timeout bounds every round-trip this package makes to a beacon node.
const timeout = 15 * time.Second

// ErrNotUnchained is returned when the remote chain does not run an
// unchained scheme.
var ErrNotUnchained = errors.New("http: not an unchained network")

func supportedScheme(name string) bool {
	switch name {
	case crypto.UnchainedSchemeID, crypto.SigsOnG1ID, crypto.ShortSigSchemeID, crypto.BN254UnchainedOnG1SchemeID:
		return true
	default:
		return false
	}
}

// Network is a tlock.Network backed by a drand HTTP relay.
type Network struct {
	chainHash string
	host      string
	client    dclient.Client
	publicKey kyber.Point
	scheme    crypto.Scheme
	period    time.Duration
	genesis   int64
}

// NewNetwork connects to host and verifies it serves the chain identified by
// chainHash, fetching its public key, scheme, period and genesis time.
func NewNetwork(host, chainHash string) (*Network, error) {
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	if _, err := url.Parse(host + "/" + chainHash); err != nil {
		return nil, fmt.Errorf("http: invalid host %q: %w", host, err)
	}

	hash, err := hex.DecodeString(chainHash)
	if err != nil {
		return nil, fmt.Errorf("http: decoding chain hash: %w", err)
	}

	client, err := dhttp.New(context.Background(), nil, host, hash, transport())
	if err != nil {
		return nil, fmt.Errorf("http: creating client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	info, err := client.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("http: fetching chain info: %w", err)
	}

	if info.HashString() != chainHash {
		return nil, fmt.Errorf("http: chain hash mismatch: requested %s, got %s", chainHash, info.HashString())
	}

	sch, err := crypto.SchemeFromName(info.Scheme)
	if err != nil || !supportedScheme(sch.Name) {
		return nil, ErrNotUnchained
	}

	return &Network{
		chainHash: chainHash,
		host:      host,
		client:    client,
		publicKey: info.PublicKey,
		scheme:    *sch,
		period:    info.Period,
		genesis:   info.GenesisTime,
	}, nil
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
	return n.scheme
}

// Period returns the time between beacon rounds on this chain.
func (n *Network) Period() time.Duration {
	return n.period
}

// GenesisTime returns the unix time of the chain's first round.
func (n *Network) GenesisTime() int64 {
	return n.genesis
}

// Signature fetches the beacon signature for roundNumber from the relay.
func (n *Network) Signature(roundNumber uint64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := n.client.Get(ctx, roundNumber)
	if err != nil {
		return nil, fmt.Errorf("http: fetching round %d: %w", roundNumber, err)
	}

	return result.GetSignature(), nil
}

// RoundNumber returns the round active at t as reported by the relay.
func (n *Network) RoundNumber(t time.Time) uint64 {
	return n.client.RoundAt(t)
}

// SwitchChainHash reconnects this network to a different chain hash on the
// same host.
func (n *Network) SwitchChainHash(newHash string) error {
	replacement, err := NewNetwork(n.host, newHash)
	if err != nil {
		return err
	}
	*n = *replacement
	return nil
}

// Fetcher adapts this network into a tlock.Fetcher, the injected callback
// HTTP-type identities use instead of the core embedding an HTTP client
// directly.
func (n *Network) Fetcher() func(ctx context.Context, baseURL string, round uint64) ([]byte, error) {
	return func(ctx context.Context, baseURL string, round uint64) ([]byte, error) {
		return FetchSignature(ctx, baseURL, n.chainHash, round)
	}
}

// FetchSignature fetches a single round's beacon signature from baseURL
// without constructing a full Network, for callers (like age-plugin-tlock's
// URL-backed identities) that only learn the chain hash once a stanza
// arrives and don't want a full chain-info handshake per decrypt.
func FetchSignature(ctx context.Context, baseURL, chainHash string, round uint64) ([]byte, error) {
	hash, err := hex.DecodeString(chainHash)
	if err != nil {
		return nil, fmt.Errorf("http: decoding chain hash: %w", err)
	}

	client, err := dhttp.New(ctx, nil, baseURL, hash, transport())
	if err != nil {
		return nil, fmt.Errorf("http: creating client: %w", err)
	}

	result, err := client.Get(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("http: fetching round %d: %w", round, err)
	}

	return result.GetSignature(), nil
}

func transport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 5 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          2,
		IdleConnTimeout:       5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 2 * time.Second,
	}
}
