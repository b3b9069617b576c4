//go:generate go run go.uber.org/mock/mockgen -source=audit.go -destination=../mocks/mock_audit_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"keychat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const auditPrefix = "audit:"

type AuditKind string

const (
	AuditJoined       AuditKind = "joined"
	AuditRejected     AuditKind = "rejected"
	AuditDisconnected AuditKind = "disconnected"
)

type IAuditRepository interface {
	Store(record AuditRecord) error
	Recent(limit int) ([]AuditRecord, error)
}

// AuditRecord is one step of a session lifecycle. Message content is never recorded.
type AuditRecord struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Kind       AuditKind       `json:"kind"`
	Holder     domain.Identity `json:"holder,omitempty"`
	Room       domain.RoomID   `json:"room"`
	Reason     string          `json:"reason,omitempty"`
	RemoteAddr string          `json:"remote_addr"`
	At         time.Time       `json:"at"`
}

type AuditRepository struct {
	db        *badger.DB
	log       *slog.Logger
	retention time.Duration
}

func NewAuditRepository(db *badger.DB, log *slog.Logger, retention time.Duration) AuditRepository {
	return AuditRepository{db: db, log: log, retention: retention}
}

// Store persists a record under "audit:{timestamp_padded}:{session}:{kind}".
// The 19-digit zero padding keeps lexicographical order chronological.
// Records expire after the configured retention, never when it is zero.
func (r AuditRepository) Store(record AuditRecord) error {
	key := fmt.Sprintf("%s%019d:%s:%s", auditPrefix, record.At.UnixNano(), record.SessionID, record.Kind)
	value, err := fromAuditRecord(record)
	if err != nil {
		return err
	}
	bytes, err := proto.Marshal(value)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), bytes)
		if r.retention > 0 {
			entry = entry.WithTTL(r.retention)
		}
		return txn.SetEntry(entry)
	})
}

// Recent returns at most limit records, newest first.
func (r AuditRepository) Recent(limit int) ([]AuditRecord, error) {
	var values [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(auditPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(prefix, []byte("9999999999999999999")...)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit {
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]AuditRecord, 0, len(values))
	for _, b := range values {
		record, err := DecodeAuditRecord(b)
		if err != nil {
			r.log.Warn("Skipping unreadable audit record", "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// DecodeAuditRecord reads a stored value back.
func DecodeAuditRecord(b []byte) (AuditRecord, error) {
	var value structpb.Struct
	if err := proto.Unmarshal(b, &value); err != nil {
		return AuditRecord{}, err
	}
	return toAuditRecord(&value)
}

func fromAuditRecord(record AuditRecord) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"session_id":  record.SessionID.String(),
		"kind":        string(record.Kind),
		"holder":      record.Holder.String(),
		"room":        record.Room.String(),
		"reason":      record.Reason,
		"remote_addr": record.RemoteAddr,
		"at":          record.At.UTC().Format(time.RFC3339Nano),
	})
}

func toAuditRecord(value *structpb.Struct) (AuditRecord, error) {
	fields := value.GetFields()
	sessionID, err := uuid.Parse(fields["session_id"].GetStringValue())
	if err != nil {
		return AuditRecord{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, fields["at"].GetStringValue())
	if err != nil {
		return AuditRecord{}, err
	}
	return AuditRecord{
		SessionID:  sessionID,
		Kind:       AuditKind(fields["kind"].GetStringValue()),
		Holder:     domain.Identity(fields["holder"].GetStringValue()),
		Room:       domain.RoomID(fields["room"].GetStringValue()),
		Reason:     fields["reason"].GetStringValue(),
		RemoteAddr: fields["remote_addr"].GetStringValue(),
		At:         at,
	}, nil
}
