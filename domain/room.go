// Package domain contains core concepts of the relay.
// No runtime, network, or storage logic should be added here.
package domain

// Challenge is the process-wide string every client signs to prove key ownership.
type Challenge string

func (c Challenge) String() string { return string(c) }

// Identity is the wallet address derived from a client's public key.
type Identity string

func (i Identity) String() string { return string(i) }

// RoomID is the subject address whose key holders may join the room.
type RoomID string

func (r RoomID) String() string { return string(r) }

// Handshake holds the out-of-band metadata of a connection attempt.
type Handshake struct {
	PublicKey string
	Signature string
	Subject   RoomID
}

// Admission is the outcome of a successful authentication.
type Admission struct {
	Identity Identity
	Room     RoomID
}
