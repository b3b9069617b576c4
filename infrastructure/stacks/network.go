// Package stacks implements the external collaborators of the relay against the Stacks
// blockchain: message signature verification, address derivation and the read-only
// contract call answering key holder membership.
package stacks

import (
	"fmt"

	"keychat/errors"
)

type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// Single-signature (p2pkh) address versions.
const (
	MainnetAddressVersion byte = 22
	TestnetAddressVersion byte = 26
)

func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case Mainnet, Testnet:
		return Network(s), nil
	default:
		return "", fmt.Errorf("%w: unknown stacks network %q", errors.ErrInvalidConfig, s)
	}
}

func (n Network) AddressVersion() byte {
	if n == Mainnet {
		return MainnetAddressVersion
	}
	return TestnetAddressVersion
}
