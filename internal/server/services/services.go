// Package services contains the voting core: the election lifecycle, the
// candidate registry, the voter eligibility gate, the voting ledger and the
// results tabulator. Services receive an explicit *sql.DB plus a
// RepositoryManager and run multi-write operations inside dbx.WithTx.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/logging"
	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/metrics"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voternet/internal/timex"
)

// base holds what every service needs.
type base struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics
	now         timex.Clock
}

func newBase(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger, m *metrics.Metrics, module string) base {
	if logger == nil {
		logger = logging.Nop{}
	}
	return base{
		db:          db,
		repomanager: rm,
		logger:      logger.With("module", module),
		metrics:     m,
		now:         timex.SystemClock,
	}
}

func (b *base) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, b.db, nil, fn)
}

// notFound replaces a bare repository ErrorNotFound with a described one.
func notFound(err error, what string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: %s not found", common.ErrorNotFound, what)
	}
	return err
}

func validation(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, msg)
}

func stateConflict(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrStateConflict, msg)
}

func forbidden(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrForbidden, msg)
}

func conflict(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrConflict, msg)
}

// audit appends an audit log row using tx, so it commits or rolls back
// together with the change it describes.
func (b *base) audit(ctx context.Context, tx dbx.DBTX, actor identity.Identity, action, resourceType, resourceID string, oldValue, newValue any) error {
	entry := &models.AuditLog{
		ActionByUserID: actor.UserID,
		ActionType:     action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		CreatedAt:      b.now(),
	}

	var err error
	if oldValue != nil {
		if entry.OldValue, err = json.Marshal(oldValue); err != nil {
			return err
		}
	}
	if newValue != nil {
		if entry.NewValue, err = json.Marshal(newValue); err != nil {
			return err
		}
	}

	return b.repomanager.AuditLogs(tx).Create(ctx, entry)
}
