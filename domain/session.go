package domain

import (
	stderrors "errors"

	"keychat/errors"
)

// SessionState is a step of the per-connection state machine.
type SessionState int

const (
	Connecting SessionState = iota
	Authenticating
	Joined
	Disconnected
	Rejected
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Authenticating:
		return "AUTHENTICATING"
	case Joined:
		return "JOINED"
	case Disconnected:
		return "DISCONNECTED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no transition leaves the state.
func (s SessionState) Terminal() bool {
	return s == Disconnected || s == Rejected
}

// RejectionReason is logged server side only, clients just observe a closed connection.
type RejectionReason string

const (
	MissingSubject RejectionReason = "MissingSubject"
	BadSignature   RejectionReason = "BadSignature"
	NotAuthorized  RejectionReason = "NotAuthorized"
)

// RejectionReasons lists every reason, in a stable order.
var RejectionReasons = []RejectionReason{MissingSubject, BadSignature, NotAuthorized}

// ReasonOf maps an authentication error to its rejection reason.
// Unknown errors are treated as NotAuthorized.
func ReasonOf(err error) RejectionReason {
	switch {
	case stderrors.Is(err, errors.ErrMissingSubject):
		return MissingSubject
	case stderrors.Is(err, errors.ErrBadSignature):
		return BadSignature
	default:
		return NotAuthorized
	}
}
