package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrMissingSubject    = fmt.Errorf("missing subject")
	ErrBadSignature      = fmt.Errorf("signature does not verify against the challenge")
	ErrNotAuthorized     = fmt.Errorf("holder is not authorized for subject")
	ErrOracleUnavailable = fmt.Errorf("membership oracle unavailable")

	ErrInvalidPublicKey       = fmt.Errorf("invalid public key")
	ErrInvalidPrivateKey      = fmt.Errorf("invalid private key")
	ErrInvalidAddress         = fmt.Errorf("invalid stacks address")
	ErrUnexpectedClarityValue = fmt.Errorf("unexpected clarity value")
	ErrInvalidConfig          = fmt.Errorf("invalid configuration")
	ErrMessageTooLarge        = fmt.Errorf("message exceeds the maximum size")
)
