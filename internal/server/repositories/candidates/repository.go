package candidates

import (
	"context"
	"time"

	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Candidate) (*models.Candidate, error)
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
	// GetInElection returns the candidate only if it belongs to electionID.
	GetInElection(ctx context.Context, id, electionID string) (*models.Candidate, error)
	FindActive(ctx context.Context, userID, electionID string) (*models.Candidate, error)
	UpdateProfile(ctx context.Context, c *models.Candidate) error
	SetVerified(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	ListByElection(ctx context.Context, electionID string, includeInactive bool) ([]*models.Candidate, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Candidate, error)
	CountActive(ctx context.Context, electionID string) (int64, error)
}
