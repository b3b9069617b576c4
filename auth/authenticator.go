package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"keychat/contract"
	"keychat/domain"
	"keychat/errors"
)

// Authenticator turns a handshake into an admission: signature first, then
// the address, then the on-chain membership of that address for the subject.
type Authenticator struct {
	log       *slog.Logger
	challenge domain.Challenge
	verifier  contract.SignatureVerifier
	deriver   contract.AddressDeriver
	oracle    contract.MembershipOracle
	timeout   time.Duration
}

func NewAuthenticator(
	log *slog.Logger,
	challenge domain.Challenge,
	verifier contract.SignatureVerifier,
	deriver contract.AddressDeriver,
	oracle contract.MembershipOracle,
	timeout time.Duration,
) *Authenticator {
	return &Authenticator{
		log:       log,
		challenge: challenge,
		verifier:  verifier,
		deriver:   deriver,
		oracle:    oracle,
		timeout:   timeout,
	}
}

func (a *Authenticator) Authenticate(ctx context.Context, handshake domain.Handshake) (domain.Admission, error) {
	if handshake.Subject == "" {
		return domain.Admission{}, errors.ErrMissingSubject
	}

	if err := ValidateCredentials(handshake); err != nil {
		return domain.Admission{}, fmt.Errorf("%w: %v", errors.ErrBadSignature, err)
	}

	verified := a.verifier.Verify(a.challenge.String(), handshake.PublicKey, handshake.Signature)
	if !verified {
		a.log.Debug("Signature rejected", "subject", handshake.Subject)
		return domain.Admission{}, errors.ErrBadSignature
	}

	holder, err := a.deriver.Derive(handshake.PublicKey)
	if err != nil {
		return domain.Admission{}, fmt.Errorf("%w: %w", errors.ErrBadSignature, err)
	}

	oracleCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		oracleCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	isHolder, err := a.oracle.IsHolder(oracleCtx, handshake.Subject, holder)
	a.log.Info("Authentication",
		"verified", verified,
		"subject", handshake.Subject,
		"holder", holder,
		"is_holder", isHolder,
	)
	if err != nil {
		return domain.Admission{}, fmt.Errorf("%w: %w: %v", errors.ErrNotAuthorized, errors.ErrOracleUnavailable, err)
	}
	if !isHolder {
		return domain.Admission{}, errors.ErrNotAuthorized
	}

	return domain.Admission{Identity: holder, Room: handshake.Subject}, nil
}
