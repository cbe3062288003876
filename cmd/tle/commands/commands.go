// Package commands implements tle's command-line flag handling and the
// encrypt/decrypt/metadata operations it drives.
package commands

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

// Default settings, matching drand's quicknet chain on mainnet.
const (
	DefaultNetwork = "https://api.drand.sh/"
	DefaultChain   = "52db9ba70e0cc0f6eaf7803dd07447a1f5477735fd3f661792ba94600c84e971"
)

const usage = `tle -- timelock encryption for age

Usage:
	tle [--encrypt] (-r round | -D duration | -T time) [--armor] [-o OUTPUT] [INPUT]
	tle --decrypt [-o OUTPUT] [INPUT]
	tle --metadata [INPUT]
	tle [--encrypt|--decrypt] --input-dir DIR --output-dir DIR [--pattern GLOB] ...

Options:
	-e, --encrypt    Encrypt the input to the output. Default if omitted.
	-d, --decrypt    Decrypt the input to the output.
	-m, --metadata   Print the round/chain a tlock stanza targets without decrypting.
	-n, --network    The drand API endpoint to use.
	-c, --chain      The chain hash to use.
	-r, --round      The specific round to encrypt against. Cannot be used with --duration/--time.
	-D, --duration   How long to wait before the message can be decrypted, e.g. "10d", "3h".
	-T, --time       RFC3339 time (UTC) when the message can be decrypted.
	-o, --output     Write the result to the file at path OUTPUT.
	-a, --armor      Encrypt to a PEM-encoded format.
	-t, --trust-chain-hash
	                 Follow a decrypted stanza to a different chain hash than --chain names.
	--input-dir      Process every file in this directory instead of a single input.
	--output-dir     Where batch mode writes its results.
	--pattern        Glob filter for batch mode, e.g. '*.txt'.
	-q, --quiet      Suppress progress output.

If OUTPUT exists, it is overwritten. NETWORK defaults to the drand mainnet
endpoint; CHAIN defaults to the quicknet chain hash.

The ROUND environment variable selects the target round at encrypt time; it
accepts either a decimal round number or a duration suffixed with s/m/h/d,
meaning "current round + ceil(duration/period)".`

// PrintUsage writes the usage text to log.
func PrintUsage(log *log.Logger) {
	log.Println(usage)
}

// Flags holds every value tle's command line and environment can set.
type Flags struct {
	Encrypt        bool
	Decrypt        bool
	Metadata       bool
	Network        string
	Chain          string
	Round          uint64
	Time           string
	Duration       string
	Output         string
	RawInput       string
	Armor          bool
	TrustChainHash bool
	InputDir       string
	OutputDir      string
	Pattern        string
	Quiet          bool
}

// Parse reads TLE_-prefixed environment variables, then overlays command
// line flags on top, then validates the combination.
func Parse() (Flags, error) {
	flag.Usage = func() { fmt.Fprintf(os.Stderr, "%s\n", usage) }

	f := Flags{
		Network: DefaultNetwork,
		Chain:   DefaultChain,
	}

	if err := envconfig.Process("tle", &f); err != nil {
		return Flags{}, fmt.Errorf("reading environment: %w", err)
	}

	// ROUND accepts either a decimal round number or a duration with an
	// s/m/h/d suffix, meaning "current round + ceil(duration/period)".
	if v := os.Getenv("ROUND"); v != "" {
		if round, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.Round = round
		} else {
			f.Duration = v
		}
	}

	parseCmdline(&f)

	if err := validateFlags(&f); err != nil {
		return Flags{}, err
	}

	return f, nil
}

func parseCmdline(f *Flags) {
	flag.BoolVar(&f.Encrypt, "e", f.Encrypt, "encrypt the input to the output")
	flag.BoolVar(&f.Encrypt, "encrypt", f.Encrypt, "encrypt the input to the output")

	flag.BoolVar(&f.Decrypt, "d", f.Decrypt, "decrypt the input to the output")
	flag.BoolVar(&f.Decrypt, "decrypt", f.Decrypt, "decrypt the input to the output")

	flag.BoolVar(&f.Metadata, "m", f.Metadata, "print the tlock stanza's round/chain without decrypting")
	flag.BoolVar(&f.Metadata, "metadata", f.Metadata, "print the tlock stanza's round/chain without decrypting")

	flag.StringVar(&f.Network, "n", f.Network, "the drand API endpoint")
	flag.StringVar(&f.Network, "network", f.Network, "the drand API endpoint")

	flag.StringVar(&f.Chain, "c", f.Chain, "the chain hash to use")
	flag.StringVar(&f.Chain, "chain", f.Chain, "the chain hash to use")

	flag.Uint64Var(&f.Round, "r", f.Round, "the specific round to encrypt against")
	flag.Uint64Var(&f.Round, "round", f.Round, "the specific round to encrypt against")

	flag.StringVar(&f.Duration, "D", f.Duration, "how long to wait before being able to decrypt")
	flag.StringVar(&f.Duration, "duration", f.Duration, "how long to wait before being able to decrypt")

	flag.StringVar(&f.Time, "T", f.Time, "an RFC3339 time value")
	flag.StringVar(&f.Time, "time", f.Time, "an RFC3339 time value")

	flag.StringVar(&f.Output, "o", f.Output, "the path to the output file")
	flag.StringVar(&f.Output, "output", f.Output, "the path to the output file")

	flag.StringVar(&f.RawInput, "I", f.RawInput, "raw input to be encrypted")
	flag.StringVar(&f.RawInput, "input", f.RawInput, "raw input to be encrypted")

	flag.BoolVar(&f.Armor, "a", f.Armor, "encrypt to a PEM-encoded format")
	flag.BoolVar(&f.Armor, "armor", f.Armor, "encrypt to a PEM-encoded format")

	flag.BoolVar(&f.TrustChainHash, "t", f.TrustChainHash, "follow a stanza to a different chain hash")
	flag.BoolVar(&f.TrustChainHash, "trust-chain-hash", f.TrustChainHash, "follow a stanza to a different chain hash")

	flag.StringVar(&f.InputDir, "input-dir", f.InputDir, "encrypt or decrypt every matching file in this directory")
	flag.StringVar(&f.OutputDir, "output-dir", f.OutputDir, "where batch mode writes its results")
	flag.StringVar(&f.Pattern, "pattern", f.Pattern, "glob filter for batch mode, e.g. '*.txt'")
	flag.BoolVar(&f.Quiet, "q", f.Quiet, "suppress progress output")
	flag.BoolVar(&f.Quiet, "quiet", f.Quiet, "suppress progress output")

	flag.Parse()
}

func validateFlags(f *Flags) error {
	set := 0
	for _, b := range []bool{f.Encrypt, f.Decrypt, f.Metadata} {
		if b {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("only one of -e/--encrypt, -d/--decrypt, -m/--metadata may be set")
	}

	if f.InputDir != "" || f.OutputDir != "" {
		if f.InputDir == "" || f.OutputDir == "" {
			return fmt.Errorf("batch mode needs both --input-dir and --output-dir")
		}
		if f.Metadata {
			return fmt.Errorf("-m/--metadata can't be used in batch mode")
		}
		if f.Output != "" || f.RawInput != "" {
			return fmt.Errorf("-o/--output and -I/--input can't be used in batch mode")
		}
	}

	switch {
	case f.Decrypt:
		if f.Duration != "" || f.Time != "" || f.Round != 0 || f.Armor {
			return fmt.Errorf("-D/--duration, -T/--time, -r/--round and -a/--armor can't be used with -d/--decrypt")
		}
	case f.Metadata:
		if f.Duration != "" || f.Time != "" || f.Round != 0 || f.Armor {
			return fmt.Errorf("-D/--duration, -T/--time, -r/--round and -a/--armor can't be used with -m/--metadata")
		}
	default:
		if f.Chain == "" {
			return fmt.Errorf("-c/--chain can't be empty")
		}
		set := 0
		for _, s := range []string{f.Duration, f.Time} {
			if s != "" {
				set++
			}
		}
		if f.Round != 0 {
			set++
		}
		if set == 0 {
			return fmt.Errorf("one of -D/--duration, -r/--round or -T/--time must be specified")
		}
		if set > 1 {
			return fmt.Errorf("only one of -D/--duration, -r/--round or -T/--time may be specified")
		}
	}

	return nil
}
