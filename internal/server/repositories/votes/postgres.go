package votes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

const voteColumns = `id, election_id, voter_id, candidate_id, vote_hash, ip_address, is_valid, verified_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVote(s scanner) (*models.Vote, error) {
	v := &models.Vote{}
	err := s.Scan(&v.ID, &v.ElectionID, &v.VoterID, &v.CandidateID, &v.VoteHash,
		&v.IPAddress, &v.IsValid, &v.VerifiedAt, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Vote) (*models.Vote, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO votes (id, election_id, voter_id, candidate_id, vote_hash, ip_address, is_valid, verified_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.ElectionID, v.VoterID, v.CandidateID, v.VoteHash, v.IPAddress, v.IsValid, v.VerifiedAt, v.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *PostgresRepository) GetByVoter(ctx context.Context, electionID, voterID string) (*models.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE election_id = $1 AND voter_id = $2`
	return r.get(ctx, query, electionID, voterID)
}

func (r *PostgresRepository) get(ctx context.Context, query string, args ...any) (*models.Vote, error) {
	v, err := scanVote(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, electionID, voterID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM votes WHERE election_id = $1 AND voter_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, electionID, voterID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Invalidate(ctx context.Context, id string) error {
	query := `UPDATE votes SET is_valid = FALSE WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
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

func (r *PostgresRepository) CountByElection(ctx context.Context, electionID string, validOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM votes WHERE election_id = $1`
	if validOnly {
		query += ` AND is_valid`
	}
	return r.count(ctx, query, electionID)
}

func (r *PostgresRepository) CountByCandidate(ctx context.Context, candidateID string) (int64, error) {
	query := `SELECT COUNT(*) FROM votes WHERE candidate_id = $1 AND is_valid`
	return r.count(ctx, query, candidateID)
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) TallyByCandidate(ctx context.Context, electionID string) (map[string]int64, error) {
	query :=
		`SELECT candidate_id, COUNT(*) FROM votes
		 WHERE election_id = $1 AND is_valid
		 GROUP BY candidate_id`

	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tally := make(map[string]int64)
	for rows.Next() {
		var (
			candidateID string
			n           int64
		)
		if err := rows.Scan(&candidateID, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tally[candidateID] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tally, nil
}

func (r *PostgresRepository) ListByElection(ctx context.Context, electionID string) ([]*models.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE election_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return items, nil
}
