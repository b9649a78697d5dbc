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

// VoterService manages voter registrations, the input of the eligibility gate.
type VoterService struct {
	base
}

func NewVoterService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger, m *metrics.Metrics) *VoterService {
	return &VoterService{base: newBase(db, rm, logger, m, "voters")}
}

// Register enrolls the caller as a voter. New registrations are eligible
// and unverified.
func (s *VoterService) Register(ctx context.Context, actor identity.Identity, voterIDNumber *string) (*models.VoterRegistration, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}
	if voterIDNumber != nil {
		n := strings.TrimSpace(*voterIDNumber)
		if n == "" {
			voterIDNumber = nil
		} else {
			voterIDNumber = &n
		}
	}

	reg, err := s.repomanager.Voters(s.db).Create(ctx, &models.VoterRegistration{
		UserID:           actor.UserID,
		VoterIDNumber:    voterIDNumber,
		RegistrationDate: s.now(),
		IsEligible:       true,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, conflict("voter is already registered or voter id number is taken")
		}
		return nil, err
	}

	s.logger.Info(ctx, "voter registered", "user_id", actor.UserID)
	return reg, nil
}

// VerifyEligibility stamps the registration of userID as verified.
func (s *VoterService) VerifyEligibility(ctx context.Context, actor identity.Identity, userID string) (*models.VoterRegistration, error) {
	if err := policy.Authorize(policy.VoterVerify, actor); err != nil {
		return nil, err
	}

	var reg *models.VoterRegistration
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Voters(tx)
		now := s.now()
		if err := repo.MarkVerified(ctx, userID, now); err != nil {
			return notFound(err, "voter registration")
		}

		var err error
		if reg, err = repo.Get(ctx, userID); err != nil {
			return notFound(err, "voter registration")
		}

		return s.audit(ctx, tx, actor, string(policy.VoterVerify), "voter_registration", userID,
			nil, map[string]any{"eligibilityVerifiedAt": now})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "voter eligibility verified", "user_id", userID, "actor", actor.UserID)
	return reg, nil
}

// SetEligible flips the eligibility flag of userID.
func (s *VoterService) SetEligible(ctx context.Context, actor identity.Identity, userID string, eligible bool) (*models.VoterRegistration, error) {
	if err := policy.Authorize(policy.VoterVerify, actor); err != nil {
		return nil, err
	}

	var reg *models.VoterRegistration
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Voters(tx)

		var err error
		if reg, err = repo.Get(ctx, userID); err != nil {
			return notFound(err, "voter registration")
		}
		old := reg.IsEligible

		if err := repo.SetEligible(ctx, userID, eligible); err != nil {
			return notFound(err, "voter registration")
		}
		reg.IsEligible = eligible

		return s.audit(ctx, tx, actor, "voter.set_eligible", "voter_registration", userID,
			map[string]any{"isEligible": old}, map[string]any{"isEligible": eligible})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "voter eligibility changed", "user_id", userID, "eligible", eligible, "actor", actor.UserID)
	return reg, nil
}

// Get returns a registration to its owner or to an official.
func (s *VoterService) Get(ctx context.Context, actor identity.Identity, userID string) (*models.VoterRegistration, error) {
	if err := policy.AuthorizeOwnerOr(policy.VoterVerify, actor, userID); err != nil {
		return nil, err
	}

	reg, err := s.repomanager.Voters(s.db).Get(ctx, userID)
	if err != nil {
		return nil, notFound(err, "voter registration")
	}
	return reg, nil
}
