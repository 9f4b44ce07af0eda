package audit

import (
	"context"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

var _ Recorder = (*Logger)(nil)

// Logger is a best-effort Recorder backed by a Store. Append failures are
// written to the operational log and swallowed.
type Logger struct {
	store Store
	lg    *zap.Logger
}

// NewLogger creates a Logger that appends to store and reports failures to lg.
func NewLogger(store Store, lg *zap.Logger) *Logger {
	return &Logger{store: store, lg: lg}
}

// Record appends an audit entry. Failures never propagate to the caller.
func (l *Logger) Record(ctx context.Context, entity, entityID, action string, oldValue, newValue []byte, operatorCode string) {
	err := l.store.Append(ctx, Entry{
		Entity:       entity,
		EntityID:     entityID,
		Action:       action,
		OldValue:     oldValue,
		NewValue:     newValue,
		OperatorCode: operatorCode,
	})
	if err != nil {
		l.lg.Error("audit append failed",
			zap.String("entity", entity),
			zap.String("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// Snapshot encodes field/value pairs as a JSON object for use as an entry's
// old or new value. Pairs keep their given order, which makes snapshots
// stable for diffing and tests.
func Snapshot(pairs ...Field) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		for _, p := range pairs {
			e.Field(p.Key, func(e *jx.Encoder) {
				e.Str(p.Value)
			})
		}
	})
	return e.Bytes()
}

// Field is a single key/value pair in a Snapshot.
type Field struct {
	Key   string
	Value string
}
