package commands

import (
	"io"

	"github.com/tlockio/tlock"
	"github.com/tlockio/tlock/networks/http"
)

// Decrypt runs the hybrid decryption operation against the configured
// network, following the stanza's own chain hash when TrustChainHash is set.
func Decrypt(flags Flags, dst io.Writer, src io.Reader, network *http.Network) error {
	return tlock.DecryptStream(dst, src, network, flags.TrustChainHash)
}
