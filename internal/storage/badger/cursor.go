package badger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"
)

// pollCursor persists the last-seen watermark for one poller (gmail uid
// validity + last uid, or an RSS feed's last-seen entry id) so a scheduler
// restart resumes rather than replays.
type pollCursor struct {
	PollerKey string `badgerhold:"key"`
	Cursor    string
}

// CursorStore persists poller watermarks across scheduler runs.
type CursorStore struct {
	db *DB
}

// NewCursorStore returns a CursorStore backed by db.
func NewCursorStore(db *DB) *CursorStore {
	return &CursorStore{db: db}
}

// Get returns the last-persisted cursor for pollerKey, or "" if none exists.
func (c *CursorStore) Get(_ context.Context, pollerKey string) (string, error) {
	var cur pollCursor
	err := c.db.Store().Get(pollerKey, &cur)
	if err == badgerhold.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cur.Cursor, nil
}

// Set persists cursor as pollerKey's new watermark.
func (c *CursorStore) Set(_ context.Context, pollerKey, cursor string) error {
	return c.db.Store().Upsert(pollerKey, &pollCursor{PollerKey: pollerKey, Cursor: cursor})
}
