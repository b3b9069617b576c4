package sink

import (
	"context"

	"keychat/domain/event"
	"keychat/observability"
)

type StatsSink struct {
	stats *observability.Stats
}

func NewStatsSink(stats *observability.Stats) StatsSink {
	return StatsSink{stats: stats}
}

func (StatsSink) Name() string { return "stats" }

func (s StatsSink) Consume(_ context.Context, e event.SessionEvent) error {
	switch evt := e.(type) {
	case event.SessionJoined:
		s.stats.IncrAdmitted()
	case event.SessionRejected:
		s.stats.IncrRejected(evt.Reason, evt.OracleFailure)
	case event.SessionDisconnected:
		s.stats.IncrDisconnected()
	case event.MessageRelayed:
		s.stats.AddRelayed(evt.Delivered)
	case event.DeliveryDropped:
		s.stats.IncrDropped()
	}
	return nil
}
