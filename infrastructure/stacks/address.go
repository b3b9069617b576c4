package stacks

import (
	"crypto/sha256"
	"fmt"

	"keychat/domain"
	"keychat/errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // hash160 is defined with RIPEMD-160
)

// AddressDeriver maps a secp256k1 public key to the standard principal of a network.
type AddressDeriver struct {
	version byte
}

func NewAddressDeriver(network Network) AddressDeriver {
	return AddressDeriver{version: network.AddressVersion()}
}

// Derive hashes the key exactly as supplied (compressed or not), like the Stacks libraries do.
func (d AddressDeriver) Derive(publicKey string) (domain.Identity, error) {
	raw, err := decodeHex(publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPublicKey, err)
	}
	if _, err := secp256k1.ParsePubKey(raw); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPublicKey, err)
	}
	return domain.Identity(AddressFromHash160(d.version, Hash160(raw))), nil
}

// Hash160 is RIPEMD-160(SHA-256(b)).
func Hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}
