// Package tlock implements the hybrid timelock encryption scheme: an age
// Recipient/Identity pair that wraps age's per-file symmetric file key using
// Boneh-Franklin IBE (see package ibe) instead of a conventional public key,
// so the wrapped key only becomes recoverable once a drand-style unchained
// beacon publishes its signature for the target round.
package tlock

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// StanzaType is the age stanza type tag this package registers, carrying a
// round number and chain hash as its two arguments and the serialized IBE
// ciphertext triple as its body.
const StanzaType = "tlock"

// ErrChainMismatch is returned when a stanza's chain-hash argument disagrees
// with the identity's own chain hash and the identity has not opted into
// following it.
var ErrChainMismatch = errors.New("tlock: chain hash mismatch")

// ErrTooEarly is returned when decryption is attempted for a round the
// network has not yet produced a signature for.
var ErrTooEarly = errors.New("tlock: too early to decrypt")

// ErrInvalidRound is returned when a stanza's round argument is not a
// decimal, non-negative value representable in 64 bits.
var ErrInvalidRound = errors.New("tlock: invalid round")

// Recipient implements age.Recipient: Wrap IBE-encrypts the file key age
// generated for this message against the network's public key and the
// target round, emitting a single tlock stanza.
type Recipient struct {
	Network     Network
	RoundNumber uint64
}

// NewRecipient builds a Recipient targeting roundNumber on the given
// network.
func NewRecipient(network Network, roundNumber uint64) *Recipient {
	return &Recipient{Network: network, RoundNumber: roundNumber}
}

// Wrap is called by age.Encrypt with the freshly generated file key.
func (r *Recipient) Wrap(fileKey []byte) ([]*age.Stanza, error) {
	ct, err := TimeLock(r.Network.PublicKey(), r.RoundNumber, fileKey)
	if err != nil {
		return nil, fmt.Errorf("tlock: encrypt file key: %w", err)
	}

	body, err := CiphertextToBytes(ct)
	if err != nil {
		return nil, fmt.Errorf("tlock: serialize ciphertext: %w", err)
	}

	stanza := &age.Stanza{
		Type: StanzaType,
		Args: []string{strconv.FormatUint(r.RoundNumber, 10), r.Network.ChainHash()},
		Body: body,
	}

	return []*age.Stanza{stanza}, nil
}

// String renders a human-readable description of the recipient, used by
// diagnostic output; it is not a wire format.
func (r *Recipient) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tlock round=%d chain=%s", r.RoundNumber, r.Network.ChainHash())
	return sb.String()
}

// Identity implements age.Identity: Unwrap recovers the file key from
// whichever tlock stanza's round the network can supply a signature for.
// TrustChainHash, when set, allows the identity to switch its underlying
// network to a stanza-carried chain hash it does not currently hold, the way
// the age-plugin-tlock interactive flow does when asked to decrypt
// ciphertext produced against a different chain.
type Identity struct {
	Network        Network
	TrustChainHash bool
}

// NewIdentity builds an Identity able to unwrap tlock stanzas for network.
func NewIdentity(network Network, trustChainHash bool) *Identity {
	return &Identity{Network: network, TrustChainHash: trustChainHash}
}

// Unwrap implements age.Identity. Every tlock stanza is tried in turn; the
// first that decrypts successfully wins, and an all-fail run surfaces the
// last error encountered.
func (i *Identity) Unwrap(stanzas []*age.Stanza) ([]byte, error) {
	var lastErr error
	tried := false

	for _, stanza := range stanzas {
		if stanza.Type != StanzaType {
			continue
		}

		fileKey, err := i.unwrapStanza(stanza)
		if err == nil {
			return fileKey, nil
		}

		tried = true
		lastErr = err
	}

	if tried {
		return nil, lastErr
	}

	return nil, age.ErrIncorrectIdentity
}

func (i *Identity) unwrapStanza(stanza *age.Stanza) ([]byte, error) {
	if len(stanza.Args) != 2 {
		return nil, fmt.Errorf("tlock: malformed stanza: want 2 args, got %d", len(stanza.Args))
	}

	round, err := strconv.ParseUint(stanza.Args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRound, stanza.Args[0], err)
	}

	chainHash := stanza.Args[1]
	if chainHash != i.Network.ChainHash() {
		if !i.TrustChainHash {
			return nil, fmt.Errorf("%w: stanza uses %s, identity uses %s", ErrChainMismatch, chainHash, i.Network.ChainHash())
		}

		fmt.Fprintf(os.Stderr, "tlock: WARN: stanza uses chain hash %s, switching\n", chainHash)
		if err := i.Network.SwitchChainHash(chainHash); err != nil {
			return nil, fmt.Errorf("%w: cannot switch to it: %v", ErrChainMismatch, err)
		}
	}

	ct, err := BytesToCiphertext(stanza.Body)
	if err != nil {
		return nil, err
	}

	// A zero latest round means the network cannot place itself in time
	// (no genesis/period known); let the signature fetch decide instead.
	latest := i.Network.RoundNumber(time.Now())
	if latest > 0 && round > latest {
		return nil, fmt.Errorf("%w: round %d has not happened yet (network is at %d)", ErrTooEarly, round, latest)
	}

	signature, err := i.Network.Signature(round)
	if err != nil {
		return nil, fmt.Errorf("tlock: fetch signature for round %d: %w", round, err)
	}

	fileKey, err := TimeUnlock(signature, ct)
	if err != nil {
		return nil, err
	}

	return fileKey, nil
}

// String renders a human-readable description of the identity.
func (i *Identity) String() string {
	return fmt.Sprintf("tlock identity chain=%s trust=%v", i.Network.ChainHash(), i.TrustChainHash)
}

// EncryptStream encrypts src to dst so it can only be decrypted once the
// network publishes its signature for round. Body encryption is delegated to
// the age container layer, with a single tlock Recipient wrapping the file
// key age generates.
func EncryptStream(dst io.Writer, src io.Reader, network Network, round uint64, useArmor bool) error {
	recipient := NewRecipient(network, round)

	var armorWriter io.WriteCloser
	if useArmor {
		armorWriter = armor.NewWriter(dst)
		dst = armorWriter
	}

	w, err := age.Encrypt(dst, recipient)
	if err != nil {
		return fmt.Errorf("tlock: initialize age encryption: %w", err)
	}

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("tlock: write plaintext: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("tlock: finalize ciphertext: %w", err)
	}

	if armorWriter != nil {
		if err := armorWriter.Close(); err != nil {
			return fmt.Errorf("tlock: finalize armor: %w", err)
		}
	}

	return nil
}

// DecryptStream reverses EncryptStream: the age container layer surfaces
// the tlock stanza and, once TimeUnlock recovers the file key, decrypts the
// body stream itself. Armored input is detected and unwrapped transparently.
func DecryptStream(dst io.Writer, src io.Reader, network Network, trustChainHash bool) error {
	identity := NewIdentity(network, trustChainHash)

	br := bufio.NewReader(src)
	if start, _ := br.Peek(len(armor.Header)); string(start) == armor.Header {
		src = armor.NewReader(br)
	} else {
		src = br
	}

	r, err := age.Decrypt(src, identity)
	if err != nil {
		return fmt.Errorf("tlock: decrypt: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("tlock: write plaintext: %w", err)
	}

	return nil
}
