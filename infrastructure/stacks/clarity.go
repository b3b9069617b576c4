package stacks

import (
	"encoding/hex"
	"fmt"

	"keychat/errors"
)

// Clarity value type prefixes of the consensus serialization.
const (
	clarityTrue              byte = 0x03
	clarityFalse             byte = 0x04
	clarityStandardPrincipal byte = 0x05
	clarityResponseOk        byte = 0x07
	clarityResponseErr       byte = 0x08
)

// SerializeStandardPrincipal encodes an address as a Clarity standard principal.
func SerializeStandardPrincipal(address string) ([]byte, error) {
	version, hash160, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 2+len(hash160))
	out = append(out, clarityStandardPrincipal, version)
	return append(out, hash160...), nil
}

// PrincipalArgument is the hex form expected by the read-only call endpoint.
func PrincipalArgument(address string) (string, error) {
	raw, err := SerializeStandardPrincipal(address)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(raw), nil
}

// DecodeBool reads a serialized bool, unwrapping (ok ...).
// An (err ...) response answers false: the contract refused the question.
func DecodeBool(result string) (bool, error) {
	raw, err := decodeHex(result)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrUnexpectedClarityValue, err)
	}
	for len(raw) > 0 {
		switch raw[0] {
		case clarityTrue:
			return true, nil
		case clarityFalse:
			return false, nil
		case clarityResponseOk:
			raw = raw[1:]
		case clarityResponseErr:
			return false, nil
		default:
			return false, fmt.Errorf("%w: type 0x%02x is not a bool", errors.ErrUnexpectedClarityValue, raw[0])
		}
	}
	return false, fmt.Errorf("%w: empty value", errors.ErrUnexpectedClarityValue)
}
