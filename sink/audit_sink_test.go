package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"keychat/domain"
	"keychat/domain/event"
	"keychat/mocks"
	"keychat/repositories"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditSink_Consume(t *testing.T) {
	sessionID := uuid.New()
	at := time.Now().UTC()

	tests := []struct {
		name     string
		event    event.SessionEvent
		expected repositories.AuditRecord
	}{
		{
			name:  "joined",
			event: event.SessionJoined{SessionID: sessionID, Holder: "ST1H", Room: "ST2R", RemoteAddr: "1.2.3.4:5", At: at},
			expected: repositories.AuditRecord{
				SessionID: sessionID, Kind: repositories.AuditJoined, Holder: "ST1H", Room: "ST2R", RemoteAddr: "1.2.3.4:5", At: at,
			},
		},
		{
			name:  "rejected",
			event: event.SessionRejected{SessionID: sessionID, Subject: "ST2R", Reason: domain.BadSignature, RemoteAddr: "1.2.3.4:5", At: at},
			expected: repositories.AuditRecord{
				SessionID: sessionID, Kind: repositories.AuditRejected, Room: "ST2R", Reason: "BadSignature", RemoteAddr: "1.2.3.4:5", At: at,
			},
		},
		{
			name:  "disconnected",
			event: event.SessionDisconnected{SessionID: sessionID, Holder: "ST1H", Room: "ST2R", Joined: true, RemoteAddr: "1.2.3.4:5", At: at},
			expected: repositories.AuditRecord{
				SessionID: sessionID, Kind: repositories.AuditDisconnected, Holder: "ST1H", Room: "ST2R", RemoteAddr: "1.2.3.4:5", At: at,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repository := mocks.NewMockIAuditRepository(ctrl)
			auditSink := NewAuditSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug))

			// Then the matching record is stored
			repository.EXPECT().Store(tt.expected).Return(nil).Times(1)

			// When the event is consumed
			require.NoError(t, auditSink.Consume(context.Background(), tt.event))
		})
	}
}

func TestAuditSink_Ignores_Message_Events(t *testing.T) {
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIAuditRepository(ctrl)
	auditSink := NewAuditSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug))

	// Message traffic is never persisted
	repository.EXPECT().Store(gomock.Any()).Times(0)

	require.NoError(t, auditSink.Consume(context.Background(), event.MessageRelayed{SessionID: uuid.New(), Delivered: 3}))
}

func TestAuditSink_Expired_Context(t *testing.T) {
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIAuditRepository(ctrl)
	auditSink := NewAuditSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repository.EXPECT().Store(gomock.Any()).Times(0)

	require.ErrorIs(t, auditSink.Consume(ctx, event.SessionJoined{SessionID: uuid.New()}), context.Canceled)
}
