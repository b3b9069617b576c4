package event

import (
	"keychat/domain"
	"time"

	"github.com/google/uuid"
)

// SessionEvent describes a step in the life of a connection.
// Events never carry message content.
type SessionEvent interface {
	Session() uuid.UUID
	OccurredAt() time.Time
}

type SessionJoined struct {
	SessionID  uuid.UUID
	Holder     domain.Identity
	Room       domain.RoomID
	RemoteAddr string
	At         time.Time
}

func (e SessionJoined) Session() uuid.UUID    { return e.SessionID }
func (e SessionJoined) OccurredAt() time.Time { return e.At }

// SessionRejected is emitted when authentication fails.
// OracleFailure tells a membership oracle outage apart from a genuine NotAuthorized.
type SessionRejected struct {
	SessionID     uuid.UUID
	Subject       domain.RoomID
	Reason        domain.RejectionReason
	Cause         string
	OracleFailure bool
	RemoteAddr    string
	At            time.Time
}

func (e SessionRejected) Session() uuid.UUID    { return e.SessionID }
func (e SessionRejected) OccurredAt() time.Time { return e.At }

// SessionDisconnected is emitted when the transport closes.
// Holder and Room are empty when the session never joined.
type SessionDisconnected struct {
	SessionID  uuid.UUID
	Holder     domain.Identity
	Room       domain.RoomID
	Joined     bool
	RemoteAddr string
	At         time.Time
}

func (e SessionDisconnected) Session() uuid.UUID    { return e.SessionID }
func (e SessionDisconnected) OccurredAt() time.Time { return e.At }

// MessageRelayed counts a fan-out, Delivered is the number of members that accepted it.
type MessageRelayed struct {
	SessionID uuid.UUID
	Holder    domain.Identity
	Room      domain.RoomID
	Delivered int
	At        time.Time
}

func (e MessageRelayed) Session() uuid.UUID    { return e.SessionID }
func (e MessageRelayed) OccurredAt() time.Time { return e.At }

// DeliveryDropped is emitted by a recipient whose outbox was full.
type DeliveryDropped struct {
	SessionID uuid.UUID
	Holder    domain.Identity
	Room      domain.RoomID
	At        time.Time
}

func (e DeliveryDropped) Session() uuid.UUID    { return e.SessionID }
func (e DeliveryDropped) OccurredAt() time.Time { return e.At }
