package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tlockio/tlock"
	"github.com/tlockio/tlock/networks/http"
)

// Encrypt resolves the target round from flags (an explicit round, a
// duration, or an RFC3339 time) and runs the hybrid encryption operation.
func Encrypt(flags Flags, dst io.Writer, src io.Reader, network *http.Network) error {
	round, err := resolveRound(flags, network)
	if err != nil {
		return err
	}

	latest := network.RoundNumber(time.Now())
	if round < latest {
		return fmt.Errorf("round %d is in the past (network is at %d)", round, latest)
	}

	return tlock.EncryptStream(dst, src, network, round, flags.Armor)
}

func resolveRound(flags Flags, network *http.Network) (uint64, error) {
	switch {
	case flags.Round != 0:
		return flags.Round, nil

	case flags.Time != "":
		t, err := time.Parse(time.RFC3339, flags.Time)
		if err != nil {
			return 0, fmt.Errorf("parsing -T/--time: %w", err)
		}
		return network.RoundNumber(t), nil

	case flags.Duration != "":
		d, err := ParseDuration(flags.Duration)
		if err != nil {
			return 0, err
		}
		// current round + ceil(duration/period)
		period := network.Period()
		if d <= 0 || period <= 0 {
			return network.RoundNumber(time.Now().Add(d)), nil
		}
		return network.RoundNumber(time.Now()) + uint64((d+period-1)/period), nil
	}

	return 0, fmt.Errorf("one of -D/--duration, -r/--round or -T/--time must be specified")
}

// ParseDuration parses the ROUND env var / -D flag's duration language: a
// decimal integer followed by one of s/m/h/d. It also accepts anything
// time.ParseDuration understands, for finer-grained units.
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	if len(s) < 2 || s[len(s)-1] != 'd' {
		return 0, fmt.Errorf("invalid duration %q: expected a Go duration or an integer number of days ending in 'd'", s)
	}

	n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	return time.Duration(n) * 24 * time.Hour, nil
}
