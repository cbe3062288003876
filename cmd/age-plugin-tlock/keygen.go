package main

import (
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/tlockio/tlock"
	"github.com/tlockio/tlock/cmd/tle/commands"
	"github.com/tlockio/tlock/networks/http"
)

// generateKeypair implements -generate/-keygen: it prints an identity blob
// and, when one can be built, a recipient blob, newline separated.
//
// Three shapes are accepted:
//
//	age-plugin-tlock -generate
//	    connect to the default drand relay and chain, emit an HTTP identity
//	    and a static recipient carrying the chain's public key and timing.
//	age-plugin-tlock -generate -remote <URL> [-chain <hash>]
//	    same, against the given relay.
//	age-plugin-tlock -generate <hex-signature>
//	    emit only a RAW identity wrapping an already-published round
//	    signature; decryption with it needs no network at all.
func generateKeypair(remote, chainHash string, args []string) error {
	if len(args) == 1 {
		if u, err := url.Parse(args[0]); err != nil || !u.IsAbs() {
			return generateRawIdentity(args[0])
		}
		if remote == "" {
			remote = args[0]
		}
	}

	if remote == "" {
		remote = commands.DefaultNetwork
	}
	if chainHash == "" {
		chainHash = commands.DefaultChain
	}

	network, err := http.NewNetwork(remote, chainHash)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", remote, err)
	}

	rawHash, err := hex.DecodeString(chainHash)
	if err != nil || len(rawHash) != 32 {
		return fmt.Errorf("chain hash must be 32 bytes of hex, got %q", chainHash)
	}
	var hash [32]byte
	copy(hash[:], rawHash)

	publicKey, err := network.PublicKey().MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshaling chain public key: %w", err)
	}

	recipient, err := tlock.EncodeRecipient(hash, publicKey, uint64(network.GenesisTime()), uint32(network.Period().Seconds()))
	if err != nil {
		return fmt.Errorf("encoding recipient: %w", err)
	}

	identity, err := tlock.EncodeHTTPIdentity(remote)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	fmt.Println("identity", identity)
	fmt.Println("recipient", recipient)
	return nil
}

// generateRawIdentity wraps an already-known round signature as an offline
// identity. There is no recipient to print: a signature only exists once its
// round has elapsed, at which point encrypting towards it is pointless.
func generateRawIdentity(hexSig string) error {
	sig, err := hex.DecodeString(hexSig)
	if err != nil {
		return fmt.Errorf("argument is neither a URL nor hex signature: %w", err)
	}
	if len(sig) != 48 && len(sig) != 96 {
		return fmt.Errorf("signature must be 48 or 96 bytes, got %d", len(sig))
	}

	identity, err := tlock.EncodeRawIdentity(sig)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	fmt.Println("identity", identity)
	return nil
}
