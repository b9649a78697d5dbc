package elections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

const electionColumns = `id, title, description, election_type, status, start_date, end_date,
		 jurisdiction, requires_verification, allows_absentee_voting, created_by_user_id,
		 created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanElection(s scanner) (*models.Election, error) {
	e := &models.Election{}
	err := s.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.Status, &e.StartDate, &e.EndDate,
		&e.Jurisdiction, &e.RequiresVerification, &e.AllowsAbsenteeVoting, &e.CreatedByUserID,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Election) (*models.Election, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO elections (id, title, description, election_type, status, start_date, end_date,
		 jurisdiction, requires_verification, allows_absentee_voting, created_by_user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.Title, e.Description, e.Type, e.Status, e.StartDate, e.EndDate,
		e.Jurisdiction, e.RequiresVerification, e.AllowsAbsenteeVoting, e.CreatedByUserID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`

	e, err := scanElection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) UpdateDraft(ctx context.Context, e *models.Election) error {
	query :=
		`UPDATE elections
		 SET title = $2, description = $3, election_type = $4, start_date = $5, end_date = $6,
		     jurisdiction = $7, requires_verification = $8, allows_absentee_voting = $9, updated_at = $10
		 WHERE id = $1 AND status = 'draft'`

	res, err := r.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Type, e.StartDate, e.EndDate,
		e.Jurisdiction, e.RequiresVerification, e.AllowsAbsenteeVoting, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) TransitionStatus(ctx context.Context, id string, from, to models.ElectionStatus, at time.Time) error {
	query :=
		`UPDATE elections SET status = $3, updated_at = $4
		 WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrStateConflict
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.ElectionFilter) ([]*models.Election, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Type != "" {
		add("election_type = $%d", f.Type)
	}
	if f.Jurisdiction != "" {
		add("jurisdiction = $%d", f.Jurisdiction)
	}
	if f.StartFrom != nil {
		add("start_date >= $%d", *f.StartFrom)
	}
	if f.StartTo != nil {
		add("start_date <= $%d", *f.StartTo)
	}

	query := `SELECT ` + electionColumns + ` FROM elections`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_date ASC`

	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]*models.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections
		 WHERE status = 'active' AND start_date <= $1 AND end_date >= $1
		 ORDER BY start_date ASC`

	return r.query(ctx, query, now)
}

func (r *PostgresRepository) ListUpcoming(ctx context.Context, now time.Time) ([]*models.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections
		 WHERE status IN ('published', 'active') AND start_date > $1
		 ORDER BY start_date ASC`

	return r.query(ctx, query, now)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Election, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return items, nil
}
