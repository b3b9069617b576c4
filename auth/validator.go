package auth

import (
	"keychat/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type credentials struct {
	PublicKey string `validate:"required,hexadecimal,max=134"`
	Signature string `validate:"required,hexadecimal,max=134"`
}

// ValidateCredentials rejects handshakes whose key or signature cannot be hex material
// before any elliptic curve work is done.
func ValidateCredentials(handshake domain.Handshake) error {
	return validate.Struct(credentials{
		PublicKey: handshake.PublicKey,
		Signature: handshake.Signature,
	})
}
