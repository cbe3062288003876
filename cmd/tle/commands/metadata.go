package commands

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"filippo.io/age/armor"
	"gopkg.in/yaml.v3"

	"github.com/tlockio/tlock/networks/http"
)

// CiphertextMetadata is what Metadata prints: the round and chain hash a
// tlock stanza targets, plus an estimate of the wall-clock time that round
// corresponds to on the network given.
type CiphertextMetadata struct {
	Round     uint64    `yaml:"round"`
	ChainHash string    `yaml:"chain_hash"`
	Time      time.Time `yaml:"time"`
}

// Metadata reads src and, without decrypting, reports the round and chain
// hash its tlock stanza targets -- useful for deciding whether it is even
// worth attempting a decrypt yet.
func Metadata(dst io.Writer, src io.Reader, network *http.Network) error {
	round, chainHash, err := findTlockStanza(src)
	if err != nil {
		return err
	}

	t := estimateRoundTime(network, round)

	out := CiphertextMetadata{Round: round, ChainHash: chainHash, Time: t}
	b, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = dst.Write(b)
	return err
}

// findTlockStanza scans an age header -- armored or raw -- for its first
// tlock stanza line ("-> tlock <round> <chainhash>") and returns its
// arguments.
func findTlockStanza(src io.Reader) (round uint64, chainHash string, err error) {
	rr := bufio.NewReader(src)

	armored := false
	if start, _ := rr.Peek(len(armor.Header)); string(start) == armor.Header {
		armored = true
		if _, err := rr.ReadString('\n'); err != nil { // consume the BEGIN line
			return 0, "", fmt.Errorf("read armor header: %w", err)
		}
	}

	for {
		line, err := rr.ReadString('\n')
		if err != nil && line == "" {
			return 0, "", fmt.Errorf("no tlock stanza found in input")
		}

		text := strings.TrimSpace(line)
		if text == "" {
			if err != nil {
				return 0, "", fmt.Errorf("no tlock stanza found in input")
			}
			continue
		}

		candidates := []string{text}
		if armored {
			if strings.HasPrefix(text, "-----END ") {
				return 0, "", fmt.Errorf("no tlock stanza found in armored input")
			}
			if decoded, decErr := base64.StdEncoding.DecodeString(text); decErr == nil {
				candidates = strings.Split(string(decoded), "\n")
			}
		}

		for _, c := range candidates {
			c = strings.TrimSpace(c)
			if !strings.HasPrefix(c, "-> ") {
				continue
			}
			fields := strings.Fields(c)
			if len(fields) >= 4 && fields[1] == "tlock" {
				r, perr := strconv.ParseUint(fields[2], 10, 64)
				if perr != nil {
					return 0, "", fmt.Errorf("parse round: %w", perr)
				}
				return r, fields[3], nil
			}
		}

		if err != nil {
			return 0, "", fmt.Errorf("no tlock stanza found in input")
		}
	}
}

// estimateRoundTime binary-searches the network's own round/time mapping
// for the wall-clock instant nearest to round.
func estimateRoundTime(network *http.Network, round uint64) time.Time {
	now := time.Now()
	current := network.RoundNumber(now)

	var low, high time.Time
	if round <= current {
		low, high = now.Add(-365*24*time.Hour), now
	} else {
		low, high = now, now.Add(365*24*time.Hour)
	}

	for i := 0; i < 64 && high.After(low); i++ {
		mid := low.Add(high.Sub(low) / 2)
		switch r := network.RoundNumber(mid); {
		case r == round:
			return mid
		case r < round:
			low = mid.Add(time.Second)
		default:
			high = mid.Add(-time.Second)
		}
	}

	return low
}
