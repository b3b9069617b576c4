package stacks

import (
	stderrors "errors"
	"strings"
	"testing"

	"keychat/errors"

	"github.com/stretchr/testify/require"
)

func TestAddressDeriver_Derive(t *testing.T) {
	req := require.New(t)
	key, publicKey := newKey(t)

	testnet, err := NewAddressDeriver(Testnet).Derive(publicKey)
	req.NoError(err)
	mainnet, err := NewAddressDeriver(Mainnet).Derive(publicKey)
	req.NoError(err)

	req.True(strings.HasPrefix(testnet.String(), "ST"))
	req.True(strings.HasPrefix(mainnet.String(), "SP"))

	// Then the principal carries hash160 of the key
	version, hash, err := ParseAddress(testnet.String())
	req.NoError(err)
	req.Equal(TestnetAddressVersion, version)
	req.Equal(Hash160(key.PubKey().SerializeCompressed()), hash)
}

func TestAddressDeriver_Deterministic(t *testing.T) {
	req := require.New(t)
	_, publicKey := newKey(t)
	deriver := NewAddressDeriver(Testnet)

	first, err := deriver.Derive(publicKey)
	req.NoError(err)
	second, err := deriver.Derive("0x" + publicKey)
	req.NoError(err)

	req.Equal(first, second)
}

func TestAddressDeriver_InvalidKey(t *testing.T) {
	deriver := NewAddressDeriver(Testnet)

	for _, key := range []string{"", "zz", "02" + strings.Repeat("00", 10)} {
		_, err := deriver.Derive(key)
		require.Error(t, err)
		require.True(t, stderrors.Is(err, errors.ErrInvalidPublicKey))
	}
}

func TestParseNetwork(t *testing.T) {
	req := require.New(t)

	n, err := ParseNetwork("mainnet")
	req.NoError(err)
	req.Equal(Mainnet, n)

	_, err = ParseNetwork("devnet")
	req.True(stderrors.Is(err, errors.ErrInvalidConfig))
}
