package sink

import (
	"context"
	"testing"

	"keychat/domain"
	"keychat/domain/event"
	"keychat/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStatsSink_Counts_Session_Events(t *testing.T) {
	req := require.New(t)
	stats := observability.NewStats()
	statsSink := NewStatsSink(stats)
	ctx := context.Background()

	// Given a full session lifecycle and a few rejections
	events := []event.SessionEvent{
		event.SessionJoined{SessionID: uuid.New()},
		event.MessageRelayed{SessionID: uuid.New(), Delivered: 3},
		event.DeliveryDropped{SessionID: uuid.New()},
		event.SessionRejected{SessionID: uuid.New(), Reason: domain.NotAuthorized, OracleFailure: true},
		event.SessionRejected{SessionID: uuid.New(), Reason: domain.MissingSubject},
		event.SessionDisconnected{SessionID: uuid.New(), Joined: true},
	}

	// When they are consumed
	for _, e := range events {
		req.NoError(statsSink.Consume(ctx, e))
	}

	// Then the counters follow
	snapshot := stats.Snapshot(nil)
	req.Equal(uint64(1), snapshot.Admitted)
	req.Equal(uint64(1), snapshot.Relayed)
	req.Equal(uint64(3), snapshot.Delivered)
	req.Equal(uint64(1), snapshot.Dropped)
	req.Equal(uint64(1), snapshot.Rejected[string(domain.NotAuthorized)])
	req.Equal(uint64(1), snapshot.Rejected[string(domain.MissingSubject)])
	req.Equal(uint64(1), snapshot.OracleFailures)
	req.Equal(uint64(1), snapshot.Disconnected)
}
