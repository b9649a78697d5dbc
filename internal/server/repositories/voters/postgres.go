package voters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create registers a user as a voter. A duplicate user or voter id number
// yields common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, reg *models.VoterRegistration) (*models.VoterRegistration, error) {
	query :=
		`INSERT INTO voter_registrations (user_id, voter_id_number, is_eligible)
		 VALUES ($1, $2, $3)
		 RETURNING registration_date`

	err := r.db.QueryRowContext(ctx, query, reg.UserID, reg.VoterIDNumber, reg.IsEligible).Scan(&reg.RegistrationDate)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return reg, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.VoterRegistration, error) {
	query :=
		`SELECT user_id, voter_id_number, registration_date, is_eligible, eligibility_verified_at
		 FROM voter_registrations
		 WHERE user_id = $1`

	reg := &models.VoterRegistration{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&reg.UserID, &reg.VoterIDNumber, &reg.RegistrationDate, &reg.IsEligible, &reg.EligibilityVerifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return reg, nil
}

func (r *PostgresRepository) SetEligible(ctx context.Context, userID string, eligible bool) error {
	query := `UPDATE voter_registrations SET is_eligible = $2 WHERE user_id = $1`
	return r.exec(ctx, query, userID, eligible)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE voter_registrations SET eligibility_verified_at = $2 WHERE user_id = $1`
	return r.exec(ctx, query, userID, at)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
