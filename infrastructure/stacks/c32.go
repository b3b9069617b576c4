package stacks

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"keychat/errors"
)

// Crockford base32 alphabet used by Stacks addresses.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	checksumLength = 4
	hash160Length  = 20
)

var c32Normalizer = strings.NewReplacer("O", "0", "L", "1", "I", "1")

// c32Encode encodes b as a big-endian base32 number. Every leading zero byte
// becomes one leading '0' digit so the length of the input survives a round trip.
func c32Encode(b []byte) string {
	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("0", zeros))

	rest := new(big.Int).SetBytes(b[zeros:])
	if rest.Sign() == 0 {
		return sb.String()
	}
	for _, digit := range rest.Text(32) {
		sb.WriteByte(c32Alphabet[base32Value(digit)])
	}
	return sb.String()
}

func c32Decode(s string) ([]byte, error) {
	s = c32Normalizer.Replace(strings.ToUpper(s))

	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	n := new(big.Int)
	for _, r := range s[zeros:] {
		idx := strings.IndexRune(c32Alphabet, r)
		if idx < 0 {
			return nil, fmt.Errorf("%w: character %q is not c32", errors.ErrInvalidAddress, r)
		}
		n.Lsh(n, 5)
		n.Or(n, big.NewInt(int64(idx)))
	}

	out := make([]byte, zeros, zeros+len(s))
	return append(out, n.Bytes()...), nil
}

// base32Value maps a digit of big.Int.Text(32) ("0-9a-v") to its value.
func base32Value(digit rune) int {
	if digit <= '9' {
		return int(digit - '0')
	}
	return int(digit-'a') + 10
}

func c32Checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])
	return second[:checksumLength]
}

// C32CheckEncode encodes data with its version character and a 4 byte double-sha256 checksum.
func C32CheckEncode(version byte, data []byte) string {
	payload := append(append([]byte{}, data...), c32Checksum(version, data)...)
	return string(c32Alphabet[version&0x1f]) + c32Encode(payload)
}

// C32CheckDecode is the inverse of C32CheckEncode.
func C32CheckDecode(s string) (byte, []byte, error) {
	if len(s) < 2 {
		return 0, nil, fmt.Errorf("%w: %q is too short", errors.ErrInvalidAddress, s)
	}
	normalized := c32Normalizer.Replace(strings.ToUpper(s))
	version := strings.IndexByte(c32Alphabet, normalized[0])
	if version < 0 {
		return 0, nil, fmt.Errorf("%w: bad version character %q", errors.ErrInvalidAddress, normalized[0])
	}

	payload, err := c32Decode(normalized[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) < checksumLength {
		return 0, nil, fmt.Errorf("%w: missing checksum", errors.ErrInvalidAddress)
	}

	data := payload[:len(payload)-checksumLength]
	checksum := payload[len(payload)-checksumLength:]
	if !bytes.Equal(checksum, c32Checksum(byte(version), data)) {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", errors.ErrInvalidAddress)
	}
	return byte(version), data, nil
}

// AddressFromHash160 builds a standard principal such as "ST..." or "SP...".
func AddressFromHash160(version byte, hash160 []byte) string {
	return "S" + C32CheckEncode(version, hash160)
}

// ParseAddress splits a standard principal into its version and hash160.
// Contract principals ("addr.name") are not accepted.
func ParseAddress(address string) (byte, []byte, error) {
	if len(address) < 2 || (address[0] != 'S' && address[0] != 's') {
		return 0, nil, fmt.Errorf("%w: %q must start with S", errors.ErrInvalidAddress, address)
	}
	version, hash160, err := C32CheckDecode(address[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(hash160) != hash160Length {
		return 0, nil, fmt.Errorf("%w: expected %d byte hash, got %d", errors.ErrInvalidAddress, hash160Length, len(hash160))
	}
	return version, hash160, nil
}
