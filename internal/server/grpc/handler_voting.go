package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc/peer"

	"github.com/dmitrijs2005/voternet/internal/server/services"
)

// remoteIP returns the caller's address without the port, or "" when the
// transport does not expose one.
func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

// castVote always votes as the caller; a voterId in the request is ignored.
func (s *GRPCServer) castVote(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("electionId", "candidateId"); err != nil {
		return nil, err
	}

	r, err := s.svc.Voting.CastVote(ctx, id, services.CastVoteInput{
		ElectionID:  req.str("electionId"),
		CandidateID: req.str("candidateId"),
		VoterID:     id.UserID,
		IPAddress:   remoteIP(ctx),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"receipt": encodeReceipt(r)}, nil
}

func (s *GRPCServer) checkEligibility(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	e, err := s.svc.Voting.CheckEligibility(ctx, id, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return encodeEligibility(e), nil
}

func (s *GRPCServer) hasVoted(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	voted, err := s.svc.Voting.HasVoted(ctx, id.UserID, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"hasVoted": voted}, nil
}

func (s *GRPCServer) getReceipt(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	r, err := s.svc.Voting.GetReceipt(ctx, id.UserID, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"receipt": encodeReceipt(r)}, nil
}

func (s *GRPCServer) verifyVote(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("voteId", "voteHash"); err != nil {
		return nil, err
	}
	ok, err := s.svc.Voting.VerifyHash(ctx, req.str("voteId"), req.str("voteHash"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"valid": ok}, nil
}

func (s *GRPCServer) invalidateVote(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("voteId"); err != nil {
		return nil, err
	}
	v, err := s.svc.Voting.Invalidate(ctx, id, req.str("voteId"), req.str("reason"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"vote": encodeVote(v)}, nil
}

func (s *GRPCServer) votingStatistics(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	st, err := s.svc.Voting.Statistics(ctx, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return encodeStatistics(st), nil
}

func (s *GRPCServer) electionVoteCount(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	n, err := s.svc.Voting.ElectionVoteCount(ctx, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": n}, nil
}

func (s *GRPCServer) candidateVoteCount(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("candidateId"); err != nil {
		return nil, err
	}
	n, err := s.svc.Voting.CandidateVoteCount(ctx, req.str("candidateId"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": n}, nil
}

func (s *GRPCServer) auditVotes(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	votes, err := s.svc.Voting.AuditVotes(ctx, id, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"votes": list(votes, encodeVote)}, nil
}

func (s *GRPCServer) getResults(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	r, err := s.svc.Results.Results(ctx, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return encodeResults(r), nil
}

func (s *GRPCServer) resultsArchiveURL(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	url, err := s.svc.Results.ArchiveURL(ctx, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": url}, nil
}
