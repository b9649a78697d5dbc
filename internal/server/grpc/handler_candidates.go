package grpc

import (
	"context"

	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/services"
)

func (s *GRPCServer) registerCandidate(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("electionId"); err != nil {
		return nil, err
	}

	c, err := s.svc.Candidates.Register(ctx, id, services.CandidateInput{
		ElectionID:       req.str("electionId"),
		CandidateName:    req.str("candidateName"),
		PartyAffiliation: models.PartyAffiliation(req.str("partyAffiliation")),
		Bio:              req.optStr("bio"),
		Platform:         req.optStr("platform"),
		Website:          req.optStr("website"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"candidate": encodeCandidate(c)}, nil
}

func (s *GRPCServer) updateCandidate(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("id"); err != nil {
		return nil, err
	}

	in := services.CandidateUpdate{
		CandidateName: req.optStr("candidateName"),
		Bio:           req.optStr("bio"),
		Platform:      req.optStr("platform"),
		Website:       req.optStr("website"),
	}
	if p := req.optStr("partyAffiliation"); p != nil {
		party := models.PartyAffiliation(*p)
		in.PartyAffiliation = &party
	}

	c, err := s.svc.Candidates.Update(ctx, id, req.str("id"), in)
	if err != nil {
		return nil, err
	}
	return map[string]any{"candidate": encodeCandidate(c)}, nil
}

type candidateFunc func(ctx context.Context, actor identity.Identity, id string) (*models.Candidate, error)

func (s *GRPCServer) candidateAction(ctx context.Context, req request, fn candidateFunc) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("id"); err != nil {
		return nil, err
	}
	c, err := fn(ctx, id, req.str("id"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"candidate": encodeCandidate(c)}, nil
}

func (s *GRPCServer) verifyCandidate(ctx context.Context, req request) (map[string]any, error) {
	return s.candidateAction(ctx, req, s.svc.Candidates.Verify)
}

func (s *GRPCServer) deactivateCandidate(ctx context.Context, req request) (map[string]any, error) {
	return s.candidateAction(ctx, req, s.svc.Candidates.Deactivate)
}

func (s *GRPCServer) reactivateCandidate(ctx context.Context, req request) (map[string]any, error) {
	return s.candidateAction(ctx, req, s.svc.Candidates.Reactivate)
}

func (s *GRPCServer) getCandidate(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("id"); err != nil {
		return nil, err
	}
	c, err := s.svc.Candidates.Get(ctx, req.str("id"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"candidate": encodeCandidate(c)}, nil
}

func (s *GRPCServer) listCandidates(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	cs, err := s.svc.Candidates.List(ctx, req.str("electionId"), req.boolean("includeInactive"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"candidates": list(cs, encodeCandidate)}, nil
}

func (s *GRPCServer) myCandidacies(ctx context.Context, _ request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	cs, err := s.svc.Candidates.ForUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"candidates": list(cs, encodeCandidate)}, nil
}

func (s *GRPCServer) isCandidate(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("electionId"); err != nil {
		return nil, err
	}
	ok, err := s.svc.Candidates.IsCandidate(ctx, id.UserID, req.str("electionId"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"isCandidate": ok}, nil
}
