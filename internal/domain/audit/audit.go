// Package audit records immutable traces of mutating actions. Entries are
// append-only: nothing in the application updates or deletes them.
package audit

import (
	"context"
	"time"
)

// Entry is a single audit record. OldValue and NewValue hold JSON object
// snapshots of the mutated fields before and after the action.
type Entry struct {
	ID           int64
	Entity       string
	EntityID     string
	Action       string
	OldValue     []byte
	NewValue     []byte
	OperatorCode string
	CreatedAt    time.Time
}

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	ListByEntity(ctx context.Context, entity, entityID string) ([]Entry, error)
}

// Recorder appends audit entries without reporting failures to the caller.
// The primary business operation must never fail because the audit store is
// unreachable.
type Recorder interface {
	Record(ctx context.Context, entity, entityID, action string, oldValue, newValue []byte, operatorCode string)
}
