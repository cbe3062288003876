// Command age-plugin-tlock lets age itself encrypt and decrypt files against
// a drand round through the "age1tlock1..."/"AGE-PLUGIN-TLOCK-..." recipient and
// identity strings, using the age plugin protocol instead of the standalone
// tle binary.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"filippo.io/age"
	page "filippo.io/age/plugin"
	"github.com/drand/drand/v2/crypto"
	"github.com/drand/kyber"

	"github.com/tlockio/tlock"
	"github.com/tlockio/tlock/cmd/tle/commands"
	"github.com/tlockio/tlock/networks/fixed"
	"github.com/tlockio/tlock/networks/http"
)

func main() {
	fs := flag.NewFlagSet("age-plugin-tlock", flag.ExitOnError)
	keygen := fs.Bool("keygen", false, "generate a tlock recipient/identity pair")
	generate := fs.Bool("generate", false, "alias for -keygen")
	remote := fs.String("remote", "", "drand relay base URL for -generate")
	chain := fs.String("chain", "", "chain hash for -generate")

	p, err := page.New("tlock")
	if err != nil {
		slog.Error("creating plugin", "err", err)
		os.Exit(1)
	}

	p.HandleRecipient(newRecipientParser(p))
	p.HandleIdentity(newIdentityParser(p))
	p.RegisterFlags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		slog.Error("parsing flags", "err", err)
		os.Exit(1)
	}

	if *keygen || *generate {
		if err := generateKeypair(*remote, *chain, fs.Args()); err != nil {
			slog.Error("keygen", "err", err)
			os.Exit(1)
		}
		return
	}

	os.Exit(p.Main())
}

// newRecipientParser builds the callback age calls for every "age1tlock..."
// recipient string it sees, after filippo.io/age/plugin has already stripped
// the bech32 framing.
func newRecipientParser(p *page.Plugin) func([]byte) (age.Recipient, error) {
	return func(data []byte) (age.Recipient, error) {
		parsed, err := tlock.DecodeRecipientBody(data)
		if err != nil {
			slog.Debug("recipient body did not match the static shape, falling back to interactive", "err", err)
			return interactive{p: p}, nil
		}

		publicKey, err := tlock.ParsePublicKey(parsed.PublicKey)
		if err != nil {
			return nil, err
		}

		network, err := fixed.NewNetwork(
			hex.EncodeToString(parsed.ChainHash[:]),
			publicKey,
			nil,
			time.Duration(parsed.Period)*time.Second,
			int64(parsed.Genesis),
			nil,
		)
		if err != nil {
			return nil, err
		}

		round := network.RoundNumber(time.Now())
		return tlock.NewRecipient(network, round), nil
	}
}

// newIdentityParser builds the callback age calls for every
// "AGE-PLUGIN-TLOCK-..." identity string it sees.
func newIdentityParser(p *page.Plugin) func([]byte) (age.Identity, error) {
	return func(data []byte) (age.Identity, error) {
		parsed, err := tlock.DecodeIdentityBody(data)
		if err != nil {
			slog.Debug("identity body did not match a known shape, falling back to interactive", "err", err)
			return interactive{p: p}, nil
		}

		switch parsed.Kind {
		case tlock.RawIdentity:
			network, err := fixed.NewNetwork("", nil, nil, 0, 0, parsed.Signature)
			if err != nil {
				return nil, err
			}
			return tlock.NewIdentity(network, true), nil

		case tlock.HTTPIdentity:
			return &httpIdentity{baseURL: parsed.URL}, nil

		default:
			return interactive{p: p}, nil
		}
	}
}

// httpIdentity defers connecting to a beacon relay until it sees the target
// chain hash in a stanza, so a keygen'd "I'll ask api.drand.sh" identity
// never needs a chain hash baked in ahead of time.
type httpIdentity struct {
	baseURL string
}

func (h *httpIdentity) Unwrap(stanzas []*age.Stanza) ([]byte, error) {
	network := &urlNetwork{baseURL: h.baseURL}
	for _, s := range stanzas {
		if s.Type == tlock.StanzaType && len(s.Args) == 2 {
			network.chainHash = s.Args[1]
			break
		}
	}
	if network.chainHash == "" {
		return nil, errors.New("age-plugin-tlock: no tlock stanza to learn a chain hash from")
	}

	return tlock.NewIdentity(network, true).Unwrap(stanzas)
}

// urlNetwork implements tlock.Network by fetching each round's signature
// on demand through networks/http.FetchSignature, rather than holding a
// live connection the way networks/http.Network does. It never claims a
// given round is "too early": a genuinely early fetch simply fails.
type urlNetwork struct {
	baseURL   string
	chainHash string
}

func (n *urlNetwork) ChainHash() string { return n.chainHash }

// PublicKey is nil for a URL-backed identity: decryption recovers the
// signature group from the ciphertext itself and never needs the chain key.
func (n *urlNetwork) PublicKey() kyber.Point { return nil }

func (n *urlNetwork) Scheme() crypto.Scheme { return crypto.Scheme{} }

func (n *urlNetwork) SwitchChainHash(hash string) error {
	n.chainHash = hash
	return nil
}

func (n *urlNetwork) RoundNumber(time.Time) uint64 {
	return ^uint64(0)
}

func (n *urlNetwork) Signature(round uint64) ([]byte, error) {
	fetch := func(ctx context.Context, baseURL string, round uint64) ([]byte, error) {
		return http.FetchSignature(ctx, baseURL, n.chainHash, round)
	}
	return tlock.FetchSignature(context.Background(), fetch, n.baseURL, round)
}

// interactive prompts the age client for every piece of information tlock
// needs, for recipients/identities whose body doesn't encode a static
// network.
type interactive struct {
	p *page.Plugin
}

func (i interactive) Wrap(fileKey []byte) ([]*age.Stanza, error) {
	network, err := i.requestNetwork("")
	if err != nil {
		return nil, err
	}

	roundStr, err := i.p.RequestValue("round number (or duration like 30d) to encrypt towards", false)
	if err != nil {
		return nil, err
	}

	round, err := strconv.ParseUint(roundStr, 10, 64)
	if err != nil {
		d, derr := commands.ParseDuration(roundStr)
		if derr != nil {
			return nil, fmt.Errorf("%q is neither a round number nor a duration: %w", roundStr, derr)
		}
		round = network.RoundNumber(time.Now().Add(d))
	}

	return tlock.NewRecipient(network, round).Wrap(fileKey)
}

func (i interactive) Unwrap(stanzas []*age.Stanza) ([]byte, error) {
	var chainHash string
	for _, s := range stanzas {
		if s.Type == tlock.StanzaType && len(s.Args) == 2 {
			chainHash = s.Args[1]
			break
		}
	}

	network, err := i.requestNetwork(chainHash)
	if err != nil {
		return nil, err
	}

	return tlock.NewIdentity(network, true).Unwrap(stanzas)
}

func (i interactive) requestNetwork(chainHash string) (tlock.Network, error) {
	if chainHash == "" {
		value, err := i.p.RequestValue("chain hash (empty for the default quicknet chain)", false)
		if err != nil {
			return nil, err
		}
		chainHash = value
		if chainHash == "" {
			chainHash = commands.DefaultChain
		}
	}

	host, err := i.p.RequestValue("drand relay base URL for chain "+chainHash+" (empty for the default)", false)
	if err != nil {
		return nil, err
	}
	if host == "" {
		host = commands.DefaultNetwork
	}

	return http.NewNetwork(host, chainHash)
}
