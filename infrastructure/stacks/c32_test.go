package stacks

import (
	"bytes"
	stderrors "errors"
	"testing"

	"keychat/errors"

	"github.com/stretchr/testify/require"
)

func TestAddressFromHash160_BurnAddresses(t *testing.T) {
	req := require.New(t)
	zero := make([]byte, hash160Length)

	req.Equal("SP000000000000000000002Q6VF78", AddressFromHash160(MainnetAddressVersion, zero))
	req.Equal("ST000000000000000000002AMW42H", AddressFromHash160(TestnetAddressVersion, zero))
}

func TestParseAddress_RoundTrip(t *testing.T) {
	req := require.New(t)
	hash := bytes.Repeat([]byte{0xab}, hash160Length)
	hash[0] = 0x00

	// Given an address built from a hash starting with a zero byte
	address := AddressFromHash160(TestnetAddressVersion, hash)

	// When it is parsed back
	version, parsed, err := ParseAddress(address)

	// Then version and hash are preserved
	req.NoError(err)
	req.Equal(TestnetAddressVersion, version)
	req.Equal(hash, parsed)
}

func TestParseAddress_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"no S prefix", "XP000000000000000000002Q6VF78"},
		{"bad checksum", "SP000000000000000000002Q6VF79"},
		{"not c32", "SP00000000000000000000!Q6VF78"},
		{"contract principal", "SP000000000000000000002Q6VF78.keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseAddress(tt.address)
			require.Error(t, err)
			require.True(t, stderrors.Is(err, errors.ErrInvalidAddress))
		})
	}
}

func TestC32Decode_NormalizesAmbiguousCharacters(t *testing.T) {
	req := require.New(t)

	upper, err := c32Decode("1Z")
	req.NoError(err)
	lower, err := c32Decode("lz")
	req.NoError(err)

	req.Equal(upper, lower)
}
