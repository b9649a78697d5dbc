package elections

import (
	"context"
	"time"

	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Election) (*models.Election, error)
	GetByID(ctx context.Context, id string) (*models.Election, error)
	// UpdateDraft persists editable fields only while the election is still a draft.
	UpdateDraft(ctx context.Context, e *models.Election) error
	// TransitionStatus moves id from one status to another and fails with
	// common.ErrStateConflict when the stored status is no longer from.
	TransitionStatus(ctx context.Context, id string, from, to models.ElectionStatus, at time.Time) error
	List(ctx context.Context, f models.ElectionFilter) ([]*models.Election, error)
	ListActive(ctx context.Context, now time.Time) ([]*models.Election, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]*models.Election, error)
}
