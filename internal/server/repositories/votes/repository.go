package votes

import (
	"context"

	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type Repository interface {
	// Create inserts a vote. A second vote by the same voter in the same
	// election fails with common.ErrConflict.
	Create(ctx context.Context, v *models.Vote) (*models.Vote, error)
	GetByID(ctx context.Context, id string) (*models.Vote, error)
	GetByVoter(ctx context.Context, electionID, voterID string) (*models.Vote, error)
	Exists(ctx context.Context, electionID, voterID string) (bool, error)
	Invalidate(ctx context.Context, id string) error
	CountByElection(ctx context.Context, electionID string, validOnly bool) (int64, error)
	CountByCandidate(ctx context.Context, candidateID string) (int64, error)
	// TallyByCandidate returns valid vote counts keyed by candidate id.
	TallyByCandidate(ctx context.Context, electionID string) (map[string]int64, error)
	ListByElection(ctx context.Context, electionID string) ([]*models.Vote, error)
}
