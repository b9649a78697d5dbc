// Package auditlogs persists the append-only audit trail of privileged actions.
package auditlogs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO audit_logs (id, action_by_user_id, action_type, resource_type, resource_id, old_value, new_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.ActionByUserID, l.ActionType, l.ResourceType, l.ResourceID,
		nullJSON(l.OldValue), nullJSON(l.NewValue), l.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]*models.AuditLog, error) {
	query :=
		`SELECT id, action_by_user_id, action_type, resource_type, resource_id, old_value, new_value, created_at
		 FROM audit_logs
		 WHERE resource_type = $1 AND resource_id = $2
		 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.AuditLog
	for rows.Next() {
		var (
			l        models.AuditLog
			oldValue sql.NullString
			newValue sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.ActionByUserID, &l.ActionType, &l.ResourceType, &l.ResourceID,
			&oldValue, &newValue, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if oldValue.Valid {
			l.OldValue = []byte(oldValue.String)
		}
		if newValue.Valid {
			l.NewValue = []byte(newValue.String)
		}
		items = append(items, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return items, nil
}
