package services

import (
	"context"
	"log/slog"

	"keychat/contract"
	"keychat/domain"
	"keychat/runtime"
)

type IRelayService interface {
	Challenge() domain.Challenge
	Serve(ctx context.Context, conn contract.Conn, handshake domain.Handshake) domain.SessionState
	Rooms() map[domain.RoomID]int
}

// RelayService owns the registry and the authenticator shared by every session.
type RelayService struct {
	log           *slog.Logger
	challenge     domain.Challenge
	authenticator contract.IAuthenticator
	registry      contract.IRegistry
	publisher     contract.EventPublisher
	outboxSize    int
}

func NewRelayService(
	log *slog.Logger,
	challenge domain.Challenge,
	authenticator contract.IAuthenticator,
	registry contract.IRegistry,
	publisher contract.EventPublisher,
	outboxSize int,
) *RelayService {
	return &RelayService{
		log:           log,
		challenge:     challenge,
		authenticator: authenticator,
		registry:      registry,
		publisher:     publisher,
		outboxSize:    outboxSize,
	}
}

func (s *RelayService) Challenge() domain.Challenge {
	return s.challenge
}

// Serve runs a new session on conn and blocks until it reaches a terminal state.
func (s *RelayService) Serve(ctx context.Context, conn contract.Conn, handshake domain.Handshake) domain.SessionState {
	session := runtime.NewSession(conn, s.authenticator, s.registry, s.publisher, s.log, s.outboxSize)
	return session.Run(ctx, handshake)
}

func (s *RelayService) Rooms() map[domain.RoomID]int {
	return s.registry.Rooms()
}
