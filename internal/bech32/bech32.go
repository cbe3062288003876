// Package bech32 implements the BIP-173 bech32 encoding (not bech32m), the
// binary-to-text format tlock uses for its recipient and identity strings.
// The algorithm follows the reference BIP-173 pseudocode; the API contract
// (Encode(hrp, data) / Decode(s)) matches the one filippo.io/age/internal/bech32
// exposes to its own recipient/identity codec, so callers can be written once
// against either.
package bech32

import (
	"fmt"
	"strings"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var charsetRev = func() [256]int8 {
	var rev [256]int8
	for i := range rev {
		rev[i] = -1
	}
	for i, c := range charset {
		rev[c] = int8(i)
	}
	return rev
}()

// Encode encodes data under the given human-readable part, producing a
// lowercase bech32 string such as "age1tlock1...". Unlike strict BIP-173,
// no 90-character cap is enforced: recipient payloads carry a full chain
// public key and do not fit in it.
func Encode(hrp string, data []byte) (string, error) {
	if err := checkHRP(hrp); err != nil {
		return "", err
	}

	rawValues, err := convertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}

	values := make([]int8, len(rawValues))
	for i, v := range rawValues {
		values[i] = int8(v)
	}

	checksum := createChecksum(hrp, values)
	combined := append(values, checksum...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, v := range combined {
		sb.WriteByte(charset[v])
	}

	return sb.String(), nil
}

// Decode parses a bech32 string, returning its human-readable part
// (lowercased like the rest of the string, whatever the input's case) and
// data. Mixed-case input is rejected.
func Decode(s string) (hrp string, data []byte, err error) {
	if len(s) < 8 {
		return "", nil, fmt.Errorf("bech32: invalid length %d", len(s))
	}

	lower := strings.ToLower(s)
	upper := strings.ToUpper(s)
	if s != lower && s != upper {
		return "", nil, fmt.Errorf("bech32: string not lowercase or uppercase")
	}
	s = lower

	pos := strings.LastIndexByte(s, '1')
	if pos < 1 || pos+7 > len(s) {
		return "", nil, fmt.Errorf("bech32: invalid separator position %d", pos)
	}

	hrp = s[:pos]
	if err := checkHRP(hrp); err != nil {
		return "", nil, err
	}

	dataPart := s[pos+1:]
	values := make([]int8, len(dataPart))
	for i, c := range dataPart {
		v := charsetRev[byte(c)]
		if v == -1 {
			return "", nil, fmt.Errorf("bech32: invalid character %q", c)
		}
		values[i] = v
	}

	if !verifyChecksum(hrp, values) {
		return "", nil, fmt.Errorf("bech32: invalid checksum")
	}

	values = values[:len(values)-6]

	raw := make([]byte, len(values))
	for i, v := range values {
		raw[i] = byte(v)
	}

	data, err = convertBits(raw, 5, 8, false)
	if err != nil {
		return "", nil, err
	}

	return hrp, data, nil
}

func checkHRP(hrp string) error {
	if len(hrp) == 0 {
		return fmt.Errorf("bech32: empty human-readable part")
	}
	for _, c := range hrp {
		if c < 33 || c > 126 {
			return fmt.Errorf("bech32: invalid character in human-readable part: %q", c)
		}
	}
	return nil
}

// convertBits regroups a byte slice between 8-bit bytes and 5-bit bech32
// words, per BIP-173. pad controls whether a short trailing group is padded
// with zero bits (encoding) or must itself be all-zero (decoding).
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc uint32
	var bits uint
	var out []byte
	maxv := uint32(1)<<toBits - 1

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("bech32: invalid data byte %d for %d-bit input", b, fromBits)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits)&byte(maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits))&byte(maxv))
		}
	} else if bits >= fromBits || byte(acc<<(toBits-bits))&byte(maxv) != 0 {
		return nil, fmt.Errorf("bech32: invalid padding")
	}

	return out, nil
}

func polymod(values []int8) int32 {
	generator := [5]int32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := int32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ int32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= generator[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []int8 {
	out := make([]int8, 0, len(hrp)*2+1)
	for _, c := range hrp {
		out = append(out, int8(c>>5))
	}
	out = append(out, 0)
	for _, c := range hrp {
		out = append(out, int8(c&31))
	}
	return out
}

func createChecksum(hrp string, values []int8) []int8 {
	enc := append(hrpExpand(hrp), values...)
	enc = append(enc, 0, 0, 0, 0, 0, 0)
	mod := polymod(enc) ^ 1

	checksum := make([]int8, 6)
	for i := range checksum {
		checksum[i] = int8((mod >> uint(5*(5-i))) & 31)
	}
	return checksum
}

func verifyChecksum(hrp string, values []int8) bool {
	return polymod(append(hrpExpand(hrp), values...)) == 1
}
