package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/voternet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, l *models.AuditLog) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]*models.AuditLog, error)
}
