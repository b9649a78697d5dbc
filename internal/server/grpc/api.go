package grpc

import (
	"context"

	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/services"
)

// The handlers depend on these narrow views of the services package so
// tests can substitute fakes.

type UserAPI interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Identity(ctx context.Context, token string) (identity.Identity, error)
	Profile(ctx context.Context, actor identity.Identity) (*models.User, error)
	UpdateProfile(ctx context.Context, actor identity.Identity, in services.ProfileUpdate) (*models.User, error)
	AssignRole(ctx context.Context, actor identity.Identity, userID string, role models.Role) (*models.User, error)
}

type ElectionAPI interface {
	Create(ctx context.Context, actor identity.Identity, in services.ElectionInput) (*models.Election, error)
	Update(ctx context.Context, actor identity.Identity, id string, in services.ElectionUpdate) (*models.Election, error)
	Publish(ctx context.Context, actor identity.Identity, id string) (*models.Election, error)
	Activate(ctx context.Context, actor identity.Identity, id string) (*models.Election, error)
	Complete(ctx context.Context, actor identity.Identity, id string) (*models.Election, error)
	Cancel(ctx context.Context, actor identity.Identity, id string) (*models.Election, error)
	Get(ctx context.Context, id string) (*models.Election, error)
	List(ctx context.Context, f models.ElectionFilter) ([]*models.Election, error)
	Active(ctx context.Context) ([]*models.Election, error)
	Upcoming(ctx context.Context) ([]*models.Election, error)
}

type CandidateAPI interface {
	Register(ctx context.Context, actor identity.Identity, in services.CandidateInput) (*models.Candidate, error)
	Update(ctx context.Context, actor identity.Identity, id string, in services.CandidateUpdate) (*models.Candidate, error)
	Verify(ctx context.Context, actor identity.Identity, id string) (*models.Candidate, error)
	Deactivate(ctx context.Context, actor identity.Identity, id string) (*models.Candidate, error)
	Reactivate(ctx context.Context, actor identity.Identity, id string) (*models.Candidate, error)
	Get(ctx context.Context, id string) (*models.Candidate, error)
	List(ctx context.Context, electionID string, includeInactive bool) ([]*models.Candidate, error)
	ForUser(ctx context.Context, userID string) ([]*models.Candidate, error)
	IsCandidate(ctx context.Context, userID, electionID string) (bool, error)
}

type VoterAPI interface {
	Register(ctx context.Context, actor identity.Identity, voterIDNumber *string) (*models.VoterRegistration, error)
	VerifyEligibility(ctx context.Context, actor identity.Identity, userID string) (*models.VoterRegistration, error)
	SetEligible(ctx context.Context, actor identity.Identity, userID string, eligible bool) (*models.VoterRegistration, error)
	Get(ctx context.Context, actor identity.Identity, userID string) (*models.VoterRegistration, error)
}

type VotingAPI interface {
	CastVote(ctx context.Context, actor identity.Identity, in services.CastVoteInput) (*models.VoteReceipt, error)
	CheckEligibility(ctx context.Context, actor identity.Identity, electionID string) (models.Eligibility, error)
	HasVoted(ctx context.Context, userID, electionID string) (bool, error)
	GetReceipt(ctx context.Context, userID, electionID string) (*models.VoteReceipt, error)
	VerifyHash(ctx context.Context, voteID, hash string) (bool, error)
	Invalidate(ctx context.Context, actor identity.Identity, voteID, reason string) (*models.Vote, error)
	Statistics(ctx context.Context, electionID string) (*models.VotingStatistics, error)
	ElectionVoteCount(ctx context.Context, electionID string) (int64, error)
	CandidateVoteCount(ctx context.Context, candidateID string) (int64, error)
	AuditVotes(ctx context.Context, actor identity.Identity, electionID string) ([]*models.Vote, error)
}

type ResultsAPI interface {
	Results(ctx context.Context, electionID string) (*models.ElectionResults, error)
	ArchiveURL(ctx context.Context, electionID string) (string, error)
}

// Services bundles everything the transport exposes.
type Services struct {
	Users      UserAPI
	Elections  ElectionAPI
	Candidates CandidateAPI
	Voters     VoterAPI
	Voting     VotingAPI
	Results    ResultsAPI
}
