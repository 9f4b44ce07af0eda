package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ovenlight/bakeshop-api/internal/domain/audit"
)

const (
	appendAuditSQL = `INSERT INTO audit_log (entity, entity_id, action, old_value, new_value, operator_code)
		VALUES ($1, $2, $3, $4, $5, $6)`

	listAuditByEntitySQL = `SELECT id, entity, entity_id, action, old_value, new_value,
		operator_code, created_at
		FROM audit_log WHERE entity = $1 AND entity_id = $2 ORDER BY id`
)

var _ audit.Store = (*AuditStore)(nil)

// AuditStore implements audit.Store backed by PostgreSQL. The table is
// append-only; no update or delete statements exist for it.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore returns an AuditStore that uses the given pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append inserts a single audit entry. Empty snapshots are stored as NULL.
func (s *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	oldValue := nullableJSON(e.OldValue)
	newValue := nullableJSON(e.NewValue)

	_, err := s.pool.Exec(ctx, appendAuditSQL,
		e.Entity, e.EntityID, e.Action, oldValue, newValue, e.OperatorCode,
	)
	if err != nil {
		return fmt.Errorf("appending audit entry for %s %q: %w", e.Entity, e.EntityID, err)
	}
	return nil
}

// ListByEntity returns all audit entries for one entity, oldest first.
func (s *AuditStore) ListByEntity(ctx context.Context, entity, entityID string) ([]audit.Entry, error) {
	rows, err := s.pool.Query(ctx, listAuditByEntitySQL, entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries for %s %q: %w", entity, entityID, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Entry, error) {
		var e audit.Entry
		err := row.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action,
			&e.OldValue, &e.NewValue, &e.OperatorCode, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing audit entries for %s %q: %w", entity, entityID, err)
	}
	return entries, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
