// Command tle encrypts and decrypts files to a future drand round, using
// tlock as an age plugin-free standalone tool.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/tlockio/tlock"
	"github.com/tlockio/tlock/cmd/tle/commands"
	"github.com/tlockio/tlock/networks/http"
)

func main() {
	logger := log.New(os.Stderr, "", 0)

	if len(os.Args) == 1 {
		commands.PrintUsage(logger)
		return
	}

	if err := run(); err != nil {
		switch {
		case errors.Is(err, tlock.ErrTooEarly):
			logger.Fatal(err)
		case errors.Is(err, http.ErrNotUnchained):
			logger.Fatal(http.ErrNotUnchained)
		default:
			logger.Fatal(err)
		}
	}
}

func run() error {
	flags, err := commands.Parse()
	if err != nil {
		return fmt.Errorf("parse commands: %w", err)
	}

	if flags.InputDir != "" {
		network, err := http.NewNetwork(flags.Network, flags.Chain)
		if err != nil {
			return err
		}
		if flags.Decrypt {
			return commands.BatchDecrypt(flags, network)
		}
		return commands.BatchEncrypt(flags, network)
	}

	var src io.Reader = os.Stdin
	if rawInput := flags.RawInput; rawInput != "" && rawInput != "-" {
		src = strings.NewReader(rawInput)
	} else if name := flag.Arg(0); name != "" && name != "-" {
		f, err := os.OpenFile(name, os.O_RDONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening input file %q: %w", name, err)
		}
		defer f.Close()
		src = f
	}

	var dst io.Writer = os.Stdout
	if name := flags.Output; name != "" && name != "-" {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("opening output file %q: %w", name, err)
		}
		defer f.Close()
		dst = f
	}

	network, err := http.NewNetwork(flags.Network, flags.Chain)
	if err != nil {
		return err
	}

	switch {
	case flags.Decrypt:
		return commands.Decrypt(flags, dst, src, network)
	case flags.Metadata:
		return commands.Metadata(dst, src, network)
	default:
		return commands.Encrypt(flags, dst, src, network)
	}
}
