package runtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"keychat/contract"
	"keychat/domain"
	"keychat/domain/event"
	"keychat/errors"

	"github.com/google/uuid"
)

type authResult struct {
	admission domain.Admission
	err       error
}

// Session drives one connection from its handshake to its end.
//
// A single event loop owns every state transition. It consumes the authentication
// result, the inbound messages produced by the reader goroutine and the transport
// failures reported by the reader or the writer. The writer goroutine only exists
// once the session has joined a room and drains the bounded outbox filled by
// Deliver.
type Session struct {
	id            uuid.UUID
	conn          contract.Conn
	authenticator contract.IAuthenticator
	registry      contract.IRegistry
	publisher     contract.EventPublisher
	log           *slog.Logger

	outbox    chan domain.Broadcast
	state     atomic.Int32
	closed    atomic.Bool
	admission domain.Admission
}

func NewSession(
	conn contract.Conn,
	authenticator contract.IAuthenticator,
	registry contract.IRegistry,
	publisher contract.EventPublisher,
	log *slog.Logger,
	outboxSize int,
) *Session {
	id := uuid.New()
	s := &Session{
		id:            id,
		conn:          conn,
		authenticator: authenticator,
		registry:      registry,
		publisher:     publisher,
		log:           log.With("session_id", id.String(), "remote_addr", conn.RemoteAddr()),
		outbox:        make(chan domain.Broadcast, max(outboxSize, 1)),
	}
	s.state.Store(int32(domain.Connecting))
	return s
}

func (s *Session) ID() string {
	return s.id.String()
}

func (s *Session) State() domain.SessionState {
	return domain.SessionState(s.state.Load())
}

// Deliver queues a broadcast for the writer. It never blocks and refuses
// deliveries once the transport is closed.
func (s *Session) Deliver(broadcast domain.Broadcast) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.outbox <- broadcast:
		return true
	default:
		s.publisher.Publish(event.DeliveryDropped{
			SessionID: s.id,
			Holder:    s.admission.Identity,
			Room:      s.admission.Room,
			At:        time.Now().UTC(),
		})
		return false
	}
}

// Run authenticates the handshake and relays messages until the transport closes,
// the session is rejected or ctx is cancelled. It returns the terminal state.
func (s *Session) Run(ctx context.Context, handshake domain.Handshake) domain.SessionState {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	s.setState(domain.Authenticating)

	// Buffered: a result arriving after the session ended must not leak the goroutine.
	authResults := make(chan authResult, 1)
	go func() {
		admission, err := s.authenticator.Authenticate(ctx, handshake)
		authResults <- authResult{admission: admission, err: err}
	}()

	inbound := make(chan string)
	transportErr := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.readLoop(ctx, inbound, transportErr)
	}()

	for {
		select {
		case res := <-authResults:
			authResults = nil
			if res.err != nil {
				s.reject(handshake, res.err)
				return s.State()
			}
			if s.closed.Load() {
				s.disconnect(nil)
				return s.State()
			}
			s.join(res.admission)
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.writeLoop(ctx, transportErr)
			}()

		case text := <-inbound:
			if s.State() != domain.Joined {
				s.log.Debug("Message dropped before join")
				continue
			}
			s.relay(text)

		case err := <-transportErr:
			s.disconnect(err)
			return s.State()

		case <-ctx.Done():
			s.disconnect(ctx.Err())
			return s.State()
		}
	}
}

func (s *Session) readLoop(ctx context.Context, inbound chan<- string, transportErr chan<- error) {
	for {
		text, err := s.conn.Read(ctx)
		if err != nil {
			s.closed.Store(true)
			transportErr <- err
			return
		}
		select {
		case inbound <- text:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) writeLoop(ctx context.Context, transportErr chan<- error) {
	for {
		select {
		case broadcast := <-s.outbox:
			if err := s.conn.Write(ctx, broadcast); err != nil {
				s.closed.Store(true)
				transportErr <- err
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) join(admission domain.Admission) {
	s.admission = admission
	s.registry.Join(admission.Room, s)
	s.setState(domain.Joined)

	s.log.Info("Session joined", "holder", admission.Identity, "room", admission.Room)
	s.publisher.Publish(event.SessionJoined{
		SessionID:  s.id,
		Holder:     admission.Identity,
		Room:       admission.Room,
		RemoteAddr: s.conn.RemoteAddr(),
		At:         time.Now().UTC(),
	})
}

func (s *Session) relay(text string) {
	delivered := s.registry.Broadcast(s.admission.Room, s.admission.Identity, text)
	s.log.Debug("Message relayed", "room", s.admission.Room, "delivered", delivered)
	s.publisher.Publish(event.MessageRelayed{
		SessionID: s.id,
		Holder:    s.admission.Identity,
		Room:      s.admission.Room,
		Delivered: delivered,
		At:        time.Now().UTC(),
	})
}

func (s *Session) reject(handshake domain.Handshake, err error) {
	s.closed.Store(true)
	s.setState(domain.Rejected)
	reason := domain.ReasonOf(err)

	s.log.Warn("Session rejected", "subject", handshake.Subject, "reason", reason, "error", err)
	if rejectErr := s.conn.Reject(); rejectErr != nil {
		s.log.Debug("Reject failed", "error", rejectErr)
	}
	s.publisher.Publish(event.SessionRejected{
		SessionID:     s.id,
		Subject:       handshake.Subject,
		Reason:        reason,
		Cause:         err.Error(),
		OracleFailure: stderrors.Is(err, errors.ErrOracleUnavailable),
		RemoteAddr:    s.conn.RemoteAddr(),
		At:            time.Now().UTC(),
	})
}

func (s *Session) disconnect(cause error) {
	s.closed.Store(true)
	joined := s.State() == domain.Joined
	if joined {
		s.registry.Leave(s)
	}
	s.setState(domain.Disconnected)
	_ = s.conn.Close()

	s.log.Info("Session disconnected", "holder", s.admission.Identity, "room", s.admission.Room, "joined", joined, "cause", cause)
	s.publisher.Publish(event.SessionDisconnected{
		SessionID:  s.id,
		Holder:     s.admission.Identity,
		Room:       s.admission.Room,
		Joined:     joined,
		RemoteAddr: s.conn.RemoteAddr(),
		At:         time.Now().UTC(),
	})
}

func (s *Session) setState(state domain.SessionState) {
	s.state.Store(int32(state))
}
