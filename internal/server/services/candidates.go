package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/logging"
	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/metrics"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/policy"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/repomanager"
)

type CandidateInput struct {
	ElectionID       string
	CandidateName    string
	PartyAffiliation models.PartyAffiliation
	Bio              *string
	Platform         *string
	Website          *string
}

// CandidateUpdate carries profile fields to change; nil fields are kept.
type CandidateUpdate struct {
	CandidateName    *string
	PartyAffiliation *models.PartyAffiliation
	Bio              *string
	Platform         *string
	Website          *string
}

// CandidateService is the candidate registry. A user holds at most one
// active candidacy per election.
type CandidateService struct {
	base
}

func NewCandidateService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger, m *metrics.Metrics) *CandidateService {
	return &CandidateService{base: newBase(db, rm, logger, m, "candidates")}
}

func (s *CandidateService) Register(ctx context.Context, actor identity.Identity, in CandidateInput) (*models.Candidate, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.CandidateName)
	if name == "" {
		return nil, validation("candidate name is required")
	}
	party := in.PartyAffiliation
	if party == "" {
		party = models.PartyIndependent
	}
	if !party.Valid() {
		return nil, validation("unknown party affiliation")
	}

	c := &models.Candidate{
		UserID:           actor.UserID,
		ElectionID:       in.ElectionID,
		CandidateName:    name,
		PartyAffiliation: party,
		Bio:              in.Bio,
		Platform:         in.Platform,
		Website:          in.Website,
		IsActive:         true,
	}

	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := s.repomanager.Elections(tx).GetByID(ctx, in.ElectionID)
		if err != nil {
			return notFound(err, "election")
		}
		if e.Status != models.StatusDraft && e.Status != models.StatusPublished {
			return stateConflict("can only register for draft or published elections")
		}
		if e.Status == models.StatusPublished && !s.now().Before(e.StartDate) {
			return stateConflict("candidate registration closed, election has started")
		}

		repo := s.repomanager.Candidates(tx)
		if _, err := repo.FindActive(ctx, actor.UserID, in.ElectionID); err == nil {
			return conflict("user is already registered as a candidate in this election")
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		reg, err := s.repomanager.Voters(tx).Get(ctx, actor.UserID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		if reg == nil || !reg.IsEligible {
			return forbidden("must be a registered and eligible voter to run as candidate")
		}

		if _, err := repo.Create(ctx, c); err != nil {
			if errors.Is(err, common.ErrConflict) {
				return conflict("user is already registered as a candidate in this election")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CandidateEvent("registered")
	s.logger.Info(ctx, "candidate registered", "candidate_id", c.ID, "election_id", c.ElectionID, "user_id", c.UserID)
	return c, nil
}

// loadWithElection fetches a candidate and its election through tx.
func (s *CandidateService) loadWithElection(ctx context.Context, tx dbx.DBTX, id string) (*models.Candidate, *models.Election, error) {
	c, err := s.repomanager.Candidates(tx).GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "candidate")
	}
	e, err := s.repomanager.Elections(tx).GetByID(ctx, c.ElectionID)
	if err != nil {
		return nil, nil, notFound(err, "election")
	}
	return c, e, nil
}

func (s *CandidateService) Update(ctx context.Context, actor identity.Identity, id string, in CandidateUpdate) (*models.Candidate, error) {
	var c *models.Candidate
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var (
			e   *models.Election
			err error
		)
		c, e, err = s.loadWithElection(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeOwnerOr(policy.CandidateManageAny, actor, c.UserID); err != nil {
			return err
		}
		if e.Status == models.StatusActive {
			return stateConflict("cannot update candidate profile during active voting")
		}

		if in.CandidateName != nil {
			name := strings.TrimSpace(*in.CandidateName)
			if name == "" {
				return validation("candidate name is required")
			}
			c.CandidateName = name
		}
		if in.PartyAffiliation != nil {
			if !in.PartyAffiliation.Valid() {
				return validation("unknown party affiliation")
			}
			c.PartyAffiliation = *in.PartyAffiliation
		}
		if in.Bio != nil {
			c.Bio = in.Bio
		}
		if in.Platform != nil {
			c.Platform = in.Platform
		}
		if in.Website != nil {
			c.Website = in.Website
		}
		c.UpdatedAt = s.now()

		return s.repomanager.Candidates(tx).UpdateProfile(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CandidateService) Verify(ctx context.Context, actor identity.Identity, id string) (*models.Candidate, error) {
	if err := policy.Authorize(policy.CandidateVerify, actor); err != nil {
		return nil, err
	}

	var c *models.Candidate
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Candidates(tx)

		var err error
		c, err = repo.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "candidate")
		}

		now := s.now()
		if err := repo.SetVerified(ctx, id, now); err != nil {
			return err
		}
		c.IsVerified = true
		c.VerifiedAt = &now
		c.UpdatedAt = now

		return s.audit(ctx, tx, actor, string(policy.CandidateVerify), "candidate", id, nil, map[string]bool{"isVerified": true})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CandidateEvent("verified")
	return c, nil
}

// Deactivate withdraws a candidacy. Blocked while the election is accepting votes.
func (s *CandidateService) Deactivate(ctx context.Context, actor identity.Identity, id string) (*models.Candidate, error) {
	var (
		c       *models.Candidate
		changed bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var (
			e   *models.Election
			err error
		)
		c, e, err = s.loadWithElection(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeOwnerOr(policy.CandidateManageAny, actor, c.UserID); err != nil {
			return err
		}
		if e.Status == models.StatusActive {
			return stateConflict("cannot withdraw during active voting")
		}
		if !c.IsActive {
			return nil
		}

		now := s.now()
		if err := s.repomanager.Candidates(tx).SetActive(ctx, id, false, now); err != nil {
			return err
		}
		c.IsActive = false
		c.UpdatedAt = now
		changed = true

		return s.audit(ctx, tx, actor, "candidate.deactivate", "candidate", id,
			map[string]bool{"isActive": true}, map[string]bool{"isActive": false})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.CandidateEvent("deactivated")
		s.logger.Info(ctx, "candidate withdrawn", "candidate_id", id, "actor", actor.UserID)
	}
	return c, nil
}

// Reactivate restores a withdrawn candidacy while the election has not
// started and the user holds no other active candidacy in it.
func (s *CandidateService) Reactivate(ctx context.Context, actor identity.Identity, id string) (*models.Candidate, error) {
	var (
		c       *models.Candidate
		changed bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var (
			e   *models.Election
			err error
		)
		c, e, err = s.loadWithElection(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeOwnerOr(policy.CandidateManageAny, actor, c.UserID); err != nil {
			return err
		}
		if e.Status != models.StatusDraft && e.Status != models.StatusPublished {
			return stateConflict("cannot reactivate candidate for elections that have started")
		}
		if c.IsActive {
			return nil
		}

		repo := s.repomanager.Candidates(tx)
		if other, err := repo.FindActive(ctx, c.UserID, c.ElectionID); err == nil && other.ID != c.ID {
			return conflict("user already has an active candidacy in this election")
		} else if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		now := s.now()
		if err := repo.SetActive(ctx, id, true, now); err != nil {
			if errors.Is(err, common.ErrConflict) {
				return conflict("user already has an active candidacy in this election")
			}
			return err
		}
		c.IsActive = true
		c.UpdatedAt = now
		changed = true

		return s.audit(ctx, tx, actor, "candidate.reactivate", "candidate", id,
			map[string]bool{"isActive": false}, map[string]bool{"isActive": true})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.CandidateEvent("reactivated")
	}
	return c, nil
}

func (s *CandidateService) Get(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := s.repomanager.Candidates(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "candidate")
	}
	return c, nil
}

// List returns an election's candidates ordered by name.
func (s *CandidateService) List(ctx context.Context, electionID string, includeInactive bool) ([]*models.Candidate, error) {
	return s.repomanager.Candidates(s.db).ListByElection(ctx, electionID, includeInactive)
}

// ForUser returns every candidacy of a user, newest first.
func (s *CandidateService) ForUser(ctx context.Context, userID string) ([]*models.Candidate, error) {
	return s.repomanager.Candidates(s.db).ListByUser(ctx, userID)
}

// IsCandidate reports whether the user holds an active candidacy in the election.
func (s *CandidateService) IsCandidate(ctx context.Context, userID, electionID string) (bool, error) {
	_, err := s.repomanager.Candidates(s.db).FindActive(ctx, userID, electionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
