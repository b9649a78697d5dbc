package voters

import (
	"context"
	"time"

	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, reg *models.VoterRegistration) (*models.VoterRegistration, error)
	Get(ctx context.Context, userID string) (*models.VoterRegistration, error)
	SetEligible(ctx context.Context, userID string, eligible bool) error
	MarkVerified(ctx context.Context, userID string, at time.Time) error
}
