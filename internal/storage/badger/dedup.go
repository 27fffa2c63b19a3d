package badger

import (
	"context"
	"time"

	"github.com/timshannon/badgerhold/v4"
)

// messageMarker records that an inbound message id has already been
// ingested, so a retried webhook delivery or a re-polled mailbox item does
// not create duplicate jobs.
type messageMarker struct {
	MessageID string `badgerhold:"key"`
	SeenAt    time.Time
}

// MessageDedup implements ingest.Dedup against the embedded store.
type MessageDedup struct {
	db *DB
}

// NewMessageDedup returns a MessageDedup backed by db.
func NewMessageDedup(db *DB) *MessageDedup {
	return &MessageDedup{db: db}
}

// SeenMessage reports whether messageID has already been marked processed.
func (d *MessageDedup) SeenMessage(_ context.Context, messageID string) (bool, error) {
	var marker messageMarker
	err := d.db.Store().Get(messageID, &marker)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkSeen records messageID as processed.
func (d *MessageDedup) MarkSeen(_ context.Context, messageID string) error {
	return d.db.Store().Upsert(messageID, &messageMarker{MessageID: messageID, SeenAt: time.Now()})
}
