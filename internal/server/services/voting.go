package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
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

type CastVoteInput struct {
	ElectionID  string
	CandidateID string
	VoterID     string
	IPAddress   string
}

// VotingService is the voting ledger. One vote per (election, voter) is
// guaranteed by a storage constraint; the in-transaction lookup only
// fails fast.
type VotingService struct {
	base
}

func NewVotingService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger, m *metrics.Metrics) *VotingService {
	return &VotingService{base: newBase(db, rm, logger, m, "voting")}
}

// VoteHash fingerprints a ballot. The field order, the ":" separator and the
// timestamp layout are fixed: changing any of them breaks verification of
// existing receipts. CastVote passes ts truncated to milliseconds so the hash
// can be recomputed from a stored row.
func VoteHash(electionID, voterID, candidateID string, ts time.Time) string {
	data := electionID + ":" + voterID + ":" + candidateID + ":" + ts.UTC().Format(time.RFC3339Nano)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, common.ErrForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrStateConflict):
		return "state_conflict"
	case errors.Is(err, common.ErrConflict):
		return "duplicate"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

func reasonError(reason string) error {
	return fmt.Errorf("%w: %s", reasonKind(reason), reason)
}

func (s *VotingService) CastVote(ctx context.Context, actor identity.Identity, in CastVoteInput) (*models.VoteReceipt, error) {
	receipt, err := s.castVote(ctx, actor, in)
	if err != nil {
		s.metrics.VoteRejected(rejectionLabel(err))
		s.logger.Info(ctx, "vote rejected", "election_id", in.ElectionID, "voter_id", in.VoterID, "error", err)
		return nil, err
	}

	s.metrics.VoteCast()
	s.logger.Info(ctx, "vote cast", "election_id", in.ElectionID, "vote_id", receipt.VoteID)
	return receipt, nil
}

func (s *VotingService) castVote(ctx context.Context, actor identity.Identity, in CastVoteInput) (*models.VoteReceipt, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}
	if in.VoterID != actor.UserID {
		return nil, forbidden("cannot vote on behalf of another user")
	}

	var receipt *models.VoteReceipt
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := s.repomanager.Elections(tx).GetByID(ctx, in.ElectionID)
		if err != nil {
			return notFound(err, "election")
		}

		now := s.now()
		for _, r := range []string{
			ruleStatusActive(e),
			ruleNotBeforeStart(e, now),
			ruleNotAfterEnd(e, now),
		} {
			if r != "" {
				return reasonError(r)
			}
		}

		reg, err := s.repomanager.Voters(tx).Get(ctx, in.VoterID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return reasonError(ReasonNotRegistered)
			}
			return err
		}
		for _, r := range []string{ruleEligibleFlag(reg), ruleVerified(reg, e)} {
			if r != "" {
				return reasonError(r)
			}
		}

		votes := s.repomanager.Votes(tx)
		voted, err := votes.Exists(ctx, in.ElectionID, in.VoterID)
		if err != nil {
			return err
		}
		if r := ruleNotVoted(voted); r != "" {
			return reasonError(r)
		}

		c, err := s.repomanager.Candidates(tx).GetInElection(ctx, in.CandidateID, in.ElectionID)
		if err != nil {
			return notFound(err, "candidate in this election")
		}
		if !c.IsActive {
			return fmt.Errorf("%w: candidate is not active", common.ErrorNotFound)
		}

		// The hash covers the same timestamp an auditor reads back from storage.
		castAt := now.UTC().Truncate(time.Millisecond)
		v := &models.Vote{
			ElectionID:  in.ElectionID,
			VoterID:     in.VoterID,
			CandidateID: in.CandidateID,
			VoteHash:    VoteHash(in.ElectionID, in.VoterID, in.CandidateID, castAt),
			IsValid:     true,
			VerifiedAt:  &castAt,
			CreatedAt:   castAt,
		}
		if in.IPAddress != "" {
			ip := in.IPAddress
			v.IPAddress = &ip
		}

		if _, err := votes.Create(ctx, v); err != nil {
			if errors.Is(err, common.ErrConflict) {
				return reasonError(ReasonAlreadyVoted)
			}
			return err
		}

		receipt = &models.VoteReceipt{
			VoteID:        v.ID,
			ElectionID:    e.ID,
			ElectionTitle: e.Title,
			VoteHash:      v.VoteHash,
			Timestamp:     castAt,
			Verified:      true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// CheckEligibility is the advisory form of the gate CastVote enforces. A
// deactivated account short-circuits the same way CastVote refuses it first.
func (s *VotingService) CheckEligibility(ctx context.Context, actor identity.Identity, electionID string) (models.Eligibility, error) {
	if policy.RequireActive(actor) != nil {
		return models.Eligibility{Reasons: []string{ReasonAccountInactive}}, nil
	}
	userID := actor.UserID

	reg, err := s.repomanager.Voters(s.db).Get(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return models.Eligibility{}, err
	}
	if reg == nil {
		return CheckEligibility(nil, nil, false, s.now()), nil
	}

	e, err := s.repomanager.Elections(s.db).GetByID(ctx, electionID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return models.Eligibility{}, err
	}

	voted, err := s.HasVoted(ctx, userID, electionID)
	if err != nil {
		return models.Eligibility{}, err
	}

	return CheckEligibility(reg, e, voted, s.now()), nil
}

func (s *VotingService) HasVoted(ctx context.Context, userID, electionID string) (bool, error) {
	return s.repomanager.Votes(s.db).Exists(ctx, electionID, userID)
}

// GetReceipt returns the caller's receipt for an election. The receipt never
// names the chosen candidate.
func (s *VotingService) GetReceipt(ctx context.Context, userID, electionID string) (*models.VoteReceipt, error) {
	v, err := s.repomanager.Votes(s.db).GetByVoter(ctx, electionID, userID)
	if err != nil {
		return nil, notFound(err, "vote")
	}
	e, err := s.repomanager.Elections(s.db).GetByID(ctx, electionID)
	if err != nil {
		return nil, notFound(err, "election")
	}

	return &models.VoteReceipt{
		VoteID:        v.ID,
		ElectionID:    v.ElectionID,
		ElectionTitle: e.Title,
		VoteHash:      v.VoteHash,
		Timestamp:     v.CreatedAt,
		Verified:      v.IsValid && v.VerifiedAt != nil,
	}, nil
}

// VerifyHash reports whether hash matches the stored fingerprint of voteID.
// An unknown vote is reported as a mismatch.
func (s *VotingService) VerifyHash(ctx context.Context, voteID, hash string) (bool, error) {
	v, err := s.repomanager.Votes(s.db).GetByID(ctx, voteID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(v.VoteHash), []byte(hash)) == 1, nil
}

// Invalidate soft-invalidates a vote for dispute resolution. The vote is
// kept for audit and excluded from tabulation.
func (s *VotingService) Invalidate(ctx context.Context, actor identity.Identity, voteID, reason string) (*models.Vote, error) {
	if err := policy.Authorize(policy.VoteInvalidate, actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validation("a reason is required to invalidate a vote")
	}

	var (
		v       *models.Vote
		changed bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Votes(tx)

		var err error
		v, err = repo.GetByID(ctx, voteID)
		if err != nil {
			return notFound(err, "vote")
		}
		if !v.IsValid {
			return nil
		}

		if err := repo.Invalidate(ctx, voteID); err != nil {
			return notFound(err, "vote")
		}
		v.IsValid = false
		changed = true

		return s.audit(ctx, tx, actor, string(policy.VoteInvalidate), "vote", voteID,
			map[string]any{"isValid": true},
			map[string]any{"isValid": false, "reason": reason})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.VoteInvalidated()
		s.logger.Warn(ctx, "vote invalidated", "vote_id", voteID, "actor", actor.UserID, "reason", reason)
	}
	return v, nil
}

func (s *VotingService) ElectionVoteCount(ctx context.Context, electionID string) (int64, error) {
	return s.repomanager.Votes(s.db).CountByElection(ctx, electionID, true)
}

func (s *VotingService) CandidateVoteCount(ctx context.Context, candidateID string) (int64, error) {
	return s.repomanager.Votes(s.db).CountByCandidate(ctx, candidateID)
}

// Statistics summarises an election's ballots. HoursRemaining is rounded
// to one decimal and never negative.
func (s *VotingService) Statistics(ctx context.Context, electionID string) (*models.VotingStatistics, error) {
	e, err := s.repomanager.Elections(s.db).GetByID(ctx, electionID)
	if err != nil {
		return nil, notFound(err, "election")
	}

	votes := s.repomanager.Votes(s.db)
	total, err := votes.CountByElection(ctx, electionID, false)
	if err != nil {
		return nil, err
	}
	valid, err := votes.CountByElection(ctx, electionID, true)
	if err != nil {
		return nil, err
	}

	hours := math.Max(0, e.EndDate.Sub(s.now()).Hours())

	return &models.VotingStatistics{
		TotalVotes:     total,
		ValidVotes:     valid,
		InvalidVotes:   total - valid,
		VotingStarted:  e.StartDate,
		VotingEnds:     e.EndDate,
		HoursRemaining: math.Round(hours*10) / 10,
	}, nil
}

// AuditVotes lists every ballot of an election, oldest first. Officials only.
func (s *VotingService) AuditVotes(ctx context.Context, actor identity.Identity, electionID string) ([]*models.Vote, error) {
	if err := policy.Authorize(policy.VoteAudit, actor); err != nil {
		return nil, err
	}
	return s.repomanager.Votes(s.db).ListByElection(ctx, electionID)
}
