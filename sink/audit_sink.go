package sink

import (
	"context"
	"fmt"
	"log/slog"

	"keychat/domain/event"
	"keychat/repositories"
)

// AuditSink persists the lifecycle of every session, never message content.
type AuditSink struct {
	repository repositories.IAuditRepository
	log        *slog.Logger
}

func NewAuditSink(repository repositories.IAuditRepository, log *slog.Logger) AuditSink {
	return AuditSink{repository: repository, log: log}
}

func (AuditSink) Name() string { return "audit" }

func (d AuditSink) Consume(ctx context.Context, e event.SessionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch evt := e.(type) {
	case event.SessionJoined:
		return d.repository.Store(repositories.AuditRecord{
			SessionID:  evt.SessionID,
			Kind:       repositories.AuditJoined,
			Holder:     evt.Holder,
			Room:       evt.Room,
			RemoteAddr: evt.RemoteAddr,
			At:         evt.At,
		})
	case event.SessionRejected:
		return d.repository.Store(repositories.AuditRecord{
			SessionID:  evt.SessionID,
			Kind:       repositories.AuditRejected,
			Room:       evt.Subject,
			Reason:     string(evt.Reason),
			RemoteAddr: evt.RemoteAddr,
			At:         evt.At,
		})
	case event.SessionDisconnected:
		return d.repository.Store(repositories.AuditRecord{
			SessionID:  evt.SessionID,
			Kind:       repositories.AuditDisconnected,
			Holder:     evt.Holder,
			Room:       evt.Room,
			RemoteAddr: evt.RemoteAddr,
			At:         evt.At,
		})
	default:
		d.log.Debug(fmt.Sprintf("Not audited event : %T", evt))
		return nil
	}
}
