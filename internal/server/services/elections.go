package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/logging"
	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/metrics"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/policy"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/repomanager"
)

// ElectionInput is the payload for creating an election. Nil flags take
// their defaults: verification required, no absentee voting.
type ElectionInput struct {
	Title                string
	Description          string
	Type                 models.ElectionType
	StartDate            time.Time
	EndDate              time.Time
	Jurisdiction         string
	RequiresVerification *bool
	AllowsAbsenteeVoting *bool
}

// ElectionUpdate carries the fields to change; nil fields are kept.
type ElectionUpdate struct {
	Title                *string
	Description          *string
	Type                 *models.ElectionType
	StartDate            *time.Time
	EndDate              *time.Time
	Jurisdiction         *string
	RequiresVerification *bool
	AllowsAbsenteeVoting *bool
}

// CompletionHook runs after an election has been committed as completed.
// Its context is detached from the request and expires after
// DefaultCompletionHookTimeout.
type CompletionHook func(ctx context.Context, e *models.Election)

const DefaultCompletionHookTimeout = 30 * time.Second

// ElectionService is the election lifecycle engine:
//
//	draft -> published -> active -> completed
//	draft | published | active -> cancelled
//
// Every mutation is role-gated through the policy table. Transitions are
// validated against the clock but never triggered by it.
type ElectionService struct {
	base
	onComplete  []CompletionHook
	hookTimeout time.Duration
}

func NewElectionService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger, m *metrics.Metrics) *ElectionService {
	return &ElectionService{
		base:        newBase(db, rm, logger, m, "elections"),
		hookTimeout: DefaultCompletionHookTimeout,
	}
}

// OnComplete registers a hook that runs after Complete succeeds.
func (s *ElectionService) OnComplete(h CompletionHook) {
	s.onComplete = append(s.onComplete, h)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func validateDates(start, end time.Time) error {
	if !end.After(start) {
		return validation("end date must be after start date")
	}
	return nil
}

func (s *ElectionService) Create(ctx context.Context, actor identity.Identity, in ElectionInput) (*models.Election, error) {
	if err := policy.Authorize(policy.ElectionCreate, actor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation("title is required")
	}
	if !in.Type.Valid() {
		return nil, validation("unknown election type")
	}
	if err := validateDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	now := s.now()
	if in.StartDate.Before(now) {
		return nil, validation("start date cannot be in the past")
	}

	e := &models.Election{
		Title:                title,
		Description:          in.Description,
		Type:                 in.Type,
		Status:               models.StatusDraft,
		StartDate:            in.StartDate.UTC(),
		EndDate:              in.EndDate.UTC(),
		Jurisdiction:         in.Jurisdiction,
		RequiresVerification: boolOr(in.RequiresVerification, true),
		AllowsAbsenteeVoting: boolOr(in.AllowsAbsenteeVoting, false),
		CreatedByUserID:      actor.UserID,
	}

	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Elections(tx).Create(ctx, e); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, "election.create", "election", e.ID, nil, e)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "election created", "election_id", e.ID, "actor", actor.UserID)
	return e, nil
}

func (s *ElectionService) Update(ctx context.Context, actor identity.Identity, id string, in ElectionUpdate) (*models.Election, error) {
	if err := policy.Authorize(policy.ElectionUpdate, actor); err != nil {
		return nil, err
	}

	var updated *models.Election
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Elections(tx)

		e, err := repo.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "election")
		}
		if e.Status != models.StatusDraft {
			return stateConflict("can only update elections in draft status")
		}
		before := *e

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return validation("title is required")
			}
			e.Title = title
		}
		if in.Description != nil {
			e.Description = *in.Description
		}
		if in.Type != nil {
			if !in.Type.Valid() {
				return validation("unknown election type")
			}
			e.Type = *in.Type
		}
		if in.StartDate != nil {
			e.StartDate = in.StartDate.UTC()
		}
		if in.EndDate != nil {
			e.EndDate = in.EndDate.UTC()
		}
		if in.Jurisdiction != nil {
			e.Jurisdiction = *in.Jurisdiction
		}
		if in.RequiresVerification != nil {
			e.RequiresVerification = *in.RequiresVerification
		}
		if in.AllowsAbsenteeVoting != nil {
			e.AllowsAbsenteeVoting = *in.AllowsAbsenteeVoting
		}
		if err := validateDates(e.StartDate, e.EndDate); err != nil {
			return err
		}
		e.UpdatedAt = s.now()

		if err := repo.UpdateDraft(ctx, e); err != nil {
			if errors.Is(err, common.ErrStateConflict) {
				return stateConflict("can only update elections in draft status")
			}
			return err
		}
		updated = e
		return s.audit(ctx, tx, actor, "election.update", "election", e.ID, before, e)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// transitionCheck validates a loaded election before its status changes.
type transitionCheck func(ctx context.Context, tx dbx.DBTX, e *models.Election, now time.Time) error

func (s *ElectionService) transition(ctx context.Context, actor identity.Identity, id string, op policy.Operation, to models.ElectionStatus, check transitionCheck) (*models.Election, error) {
	if err := policy.Authorize(op, actor); err != nil {
		return nil, err
	}

	var (
		e    *models.Election
		from models.ElectionStatus
	)
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Elections(tx)

		var err error
		e, err = repo.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "election")
		}

		now := s.now()
		if err := check(ctx, tx, e, now); err != nil {
			return err
		}

		// compare-and-set: a concurrent transition makes this fail
		from = e.Status
		if err := repo.TransitionStatus(ctx, id, from, to, now); err != nil {
			if errors.Is(err, common.ErrStateConflict) {
				return stateConflict("election status changed concurrently")
			}
			return err
		}
		e.Status = to
		e.UpdatedAt = now

		return s.audit(ctx, tx, actor, string(op), "election", id,
			map[string]string{"status": string(from)}, map[string]string{"status": string(to)})
	})
	if err != nil {
		s.logger.Debug(ctx, "election transition rejected", "election_id", id, "to", to, "error", err)
		return nil, err
	}

	s.metrics.Transition(string(to))
	s.logger.Info(ctx, "election status changed", "election_id", id, "from", from, "to", to, "actor", actor.UserID)
	return e, nil
}

func (s *ElectionService) Publish(ctx context.Context, actor identity.Identity, id string) (*models.Election, error) {
	return s.transition(ctx, actor, id, policy.ElectionPublish, models.StatusPublished,
		func(ctx context.Context, tx dbx.DBTX, e *models.Election, _ time.Time) error {
			if e.Status != models.StatusDraft {
				return stateConflict("can only publish elections in draft status")
			}
			n, err := s.repomanager.Candidates(tx).CountActive(ctx, e.ID)
			if err != nil {
				return err
			}
			if n == 0 {
				return stateConflict("cannot publish election without candidates")
			}
			return nil
		})
}

func (s *ElectionService) Activate(ctx context.Context, actor identity.Identity, id string) (*models.Election, error) {
	return s.transition(ctx, actor, id, policy.ElectionActivate, models.StatusActive,
		func(_ context.Context, _ dbx.DBTX, e *models.Election, now time.Time) error {
			if e.Status != models.StatusPublished {
				return stateConflict("can only activate published elections")
			}
			if now.Before(e.StartDate) {
				return stateConflict("cannot activate election before start date")
			}
			return nil
		})
}

func (s *ElectionService) Complete(ctx context.Context, actor identity.Identity, id string) (*models.Election, error) {
	e, err := s.transition(ctx, actor, id, policy.ElectionComplete, models.StatusCompleted,
		func(_ context.Context, _ dbx.DBTX, e *models.Election, now time.Time) error {
			if e.Status != models.StatusActive {
				return stateConflict("can only complete active elections")
			}
			if now.Before(e.EndDate) {
				return stateConflict("cannot complete election before end date")
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.runCompletionHooks(ctx, e)
	return e, nil
}

func (s *ElectionService) runCompletionHooks(ctx context.Context, e *models.Election) {
	if len(s.onComplete) == 0 {
		return
	}
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.hookTimeout)
	defer cancel()
	for _, h := range s.onComplete {
		h(hookCtx, e)
	}
	if errors.Is(hookCtx.Err(), context.DeadlineExceeded) {
		s.logger.Warn(ctx, "completion hooks timed out", "election_id", e.ID, "timeout", s.hookTimeout)
	}
}

func (s *ElectionService) Cancel(ctx context.Context, actor identity.Identity, id string) (*models.Election, error) {
	return s.transition(ctx, actor, id, policy.ElectionCancel, models.StatusCancelled,
		func(_ context.Context, _ dbx.DBTX, e *models.Election, _ time.Time) error {
			switch e.Status {
			case models.StatusCompleted:
				return stateConflict("cannot cancel completed elections")
			case models.StatusCancelled:
				return stateConflict("election is already cancelled")
			}
			return nil
		})
}

func (s *ElectionService) Get(ctx context.Context, id string) (*models.Election, error) {
	e, err := s.repomanager.Elections(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "election")
	}
	return e, nil
}

func (s *ElectionService) List(ctx context.Context, f models.ElectionFilter) ([]*models.Election, error) {
	return s.repomanager.Elections(s.db).List(ctx, f)
}

// Active returns elections currently accepting votes.
func (s *ElectionService) Active(ctx context.Context) ([]*models.Election, error) {
	return s.repomanager.Elections(s.db).ListActive(ctx, s.now())
}

// Upcoming returns published or active elections whose window has not opened yet.
func (s *ElectionService) Upcoming(ctx context.Context) ([]*models.Election, error) {
	return s.repomanager.Elections(s.db).ListUpcoming(ctx, s.now())
}

// IsActiveForVoting reports whether the election is active and inside its window.
func (s *ElectionService) IsActiveForVoting(ctx context.Context, id string) (bool, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return e.Status == models.StatusActive && e.InWindow(s.now()), nil
}
