package workers

import (
	"context"
	"log/slog"
	"time"

	"keychat/contract"
	"keychat/domain/event"
)

// EventFanout broadcasts session events to multiple in-process consumers.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. EventFanout is not a message broker.
//
// It is intended for side effects (audit, stats, logs), never for the relay itself:
// Publish drops the event rather than slow a session down.
type EventFanout struct {
	log         *slog.Logger
	events      chan event.SessionEvent
	sinks       []contract.EventSink
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, bufferSize int, sinkTimeout time.Duration, sinks ...contract.EventSink) *EventFanout {
	return &EventFanout{
		log:         log,
		events:      make(chan event.SessionEvent, bufferSize),
		sinks:       sinks,
		sinkTimeout: sinkTimeout,
	}
}

// Events exposes the buffer for capacity telemetry.
func (w *EventFanout) Events() any {
	return w.events
}

// Publish never blocks.
func (w *EventFanout) Publish(evt event.SessionEvent) {
	select {
	case w.events <- evt:
	default:
		w.log.Debug("Session event lost", "session_id", evt.Session())
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout One sink for each event, each bounded by sinkTimeout.
func (w *EventFanout) Fanout(ctx context.Context, evt event.SessionEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed", "sink", sinkName(sink), "error", err)
		}
		cancel()
	}
}

func sinkName(sink contract.EventSink) string {
	if named, ok := sink.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}
