//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"keychat/domain"
	"keychat/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// SignatureVerifier checks a signature over message for the claimed public key.
// Both key and signature are hex encoded. It never fails, malformed input is just invalid.
type SignatureVerifier interface {
	Verify(message, publicKey, signature string) bool
}

// AddressDeriver maps a hex public key to a wallet address.
type AddressDeriver interface {
	Derive(publicKey string) (domain.Identity, error)
}

// MembershipOracle answers "does holder hold access to subject?" against a remote ledger.
type MembershipOracle interface {
	IsHolder(ctx context.Context, subject domain.RoomID, holder domain.Identity) (bool, error)
}

type IAuthenticator interface {
	Authenticate(ctx context.Context, handshake domain.Handshake) (domain.Admission, error)
}

// Member is a joined session as seen by the registry.
// Deliver must not block: it returns false when the delivery is dropped.
type Member interface {
	ID() string
	Deliver(broadcast domain.Broadcast) bool
}

type IRegistry interface {
	Join(roomID domain.RoomID, member Member)
	Leave(member Member)
	Broadcast(roomID domain.RoomID, sender domain.Identity, text string) int
	Members(roomID domain.RoomID) []string
	Rooms() map[domain.RoomID]int
}

// Conn abstracts the transport of one client connection.
type Conn interface {
	// Read blocks until the next inbound chat message. Any error means the transport is gone.
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, broadcast domain.Broadcast) error
	// Reject forcibly terminates a connection that failed authentication.
	Reject() error
	Close() error
	RemoteAddr() string
}

type EventPublisher interface {
	Publish(e event.SessionEvent)
}

type EventSink interface {
	Consume(ctx context.Context, e event.SessionEvent) error
}
