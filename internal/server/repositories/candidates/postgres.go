package candidates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

const candidateColumns = `id, user_id, election_id, candidate_name, party_affiliation, bio, platform,
		 website, is_active, is_verified, verified_at, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(s scanner) (*models.Candidate, error) {
	c := &models.Candidate{}
	err := s.Scan(&c.ID, &c.UserID, &c.ElectionID, &c.CandidateName, &c.PartyAffiliation,
		&c.Bio, &c.Platform, &c.Website, &c.IsActive, &c.IsVerified, &c.VerifiedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new candidacy. A second active candidacy for the same
// user and election violates a partial unique index and yields common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Candidate) (*models.Candidate, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO candidates (id, user_id, election_id, candidate_name, party_affiliation,
		 bio, platform, website, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.UserID, c.ElectionID, c.CandidateName, c.PartyAffiliation,
		c.Bio, c.Platform, c.Website, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *PostgresRepository) GetInElection(ctx context.Context, id, electionID string) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1 AND election_id = $2`
	return r.get(ctx, query, id, electionID)
}

func (r *PostgresRepository) FindActive(ctx context.Context, userID, electionID string) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates
		 WHERE user_id = $1 AND election_id = $2 AND is_active`
	return r.get(ctx, query, userID, electionID)
}

func (r *PostgresRepository) get(ctx context.Context, query string, args ...any) (*models.Candidate, error) {
	c, err := scanCandidate(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, c *models.Candidate) error {
	query :=
		`UPDATE candidates
		 SET candidate_name = $2, party_affiliation = $3, bio = $4, platform = $5, website = $6, updated_at = $7
		 WHERE id = $1`

	return r.exec(ctx, query, c.ID, c.CandidateName, c.PartyAffiliation, c.Bio, c.Platform, c.Website, c.UpdatedAt)
}

func (r *PostgresRepository) SetVerified(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE candidates SET is_verified = TRUE, verified_at = $2, updated_at = $2 WHERE id = $1`
	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	query := `UPDATE candidates SET is_active = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, active, at)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByElection(ctx context.Context, electionID string, includeInactive bool) ([]*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE election_id = $1`
	if !includeInactive {
		query += ` AND is_active`
	}
	query += ` ORDER BY candidate_name ASC, created_at ASC`

	return r.list(ctx, query, electionID)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return items, nil
}

func (r *PostgresRepository) CountActive(ctx context.Context, electionID string) (int64, error) {
	query := `SELECT COUNT(*) FROM candidates WHERE election_id = $1 AND is_active`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, electionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
