package grpc

import (
	"context"

	"github.com/dmitrijs2005/voternet/internal/server/identity"
	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/services"
)

func (s *GRPCServer) createElection(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	start, err := req.timestamp("startDate")
	if err != nil {
		return nil, err
	}
	end, err := req.timestamp("endDate")
	if err != nil {
		return nil, err
	}

	e, err := s.svc.Elections.Create(ctx, id, services.ElectionInput{
		Title:                req.str("title"),
		Description:          req.str("description"),
		Type:                 models.ElectionType(req.str("type")),
		StartDate:            start,
		EndDate:              end,
		Jurisdiction:         req.str("jurisdiction"),
		RequiresVerification: req.optBool("requiresVerification"),
		AllowsAbsenteeVoting: req.optBool("allowsAbsenteeVoting"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"election": encodeElection(e)}, nil
}

func (s *GRPCServer) updateElection(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("id"); err != nil {
		return nil, err
	}
	start, err := req.optTime("startDate")
	if err != nil {
		return nil, err
	}
	end, err := req.optTime("endDate")
	if err != nil {
		return nil, err
	}

	in := services.ElectionUpdate{
		Title:                req.optStr("title"),
		Description:          req.optStr("description"),
		StartDate:            start,
		EndDate:              end,
		Jurisdiction:         req.optStr("jurisdiction"),
		RequiresVerification: req.optBool("requiresVerification"),
		AllowsAbsenteeVoting: req.optBool("allowsAbsenteeVoting"),
	}
	if t := req.optStr("type"); t != nil {
		et := models.ElectionType(*t)
		in.Type = &et
	}

	e, err := s.svc.Elections.Update(ctx, id, req.str("id"), in)
	if err != nil {
		return nil, err
	}
	return map[string]any{"election": encodeElection(e)}, nil
}

type transitionFunc func(ctx context.Context, actor identity.Identity, id string) (*models.Election, error)

func (s *GRPCServer) transition(ctx context.Context, req request, fn transitionFunc) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("id"); err != nil {
		return nil, err
	}
	e, err := fn(ctx, id, req.str("id"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"election": encodeElection(e)}, nil
}

func (s *GRPCServer) publishElection(ctx context.Context, req request) (map[string]any, error) {
	return s.transition(ctx, req, s.svc.Elections.Publish)
}

func (s *GRPCServer) activateElection(ctx context.Context, req request) (map[string]any, error) {
	return s.transition(ctx, req, s.svc.Elections.Activate)
}

func (s *GRPCServer) completeElection(ctx context.Context, req request) (map[string]any, error) {
	return s.transition(ctx, req, s.svc.Elections.Complete)
}

func (s *GRPCServer) cancelElection(ctx context.Context, req request) (map[string]any, error) {
	return s.transition(ctx, req, s.svc.Elections.Cancel)
}

func (s *GRPCServer) getElection(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("id"); err != nil {
		return nil, err
	}
	e, err := s.svc.Elections.Get(ctx, req.str("id"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"election": encodeElection(e)}, nil
}

func (s *GRPCServer) listElections(ctx context.Context, req request) (map[string]any, error) {
	from, err := req.optTime("startFrom")
	if err != nil {
		return nil, err
	}
	to, err := req.optTime("startTo")
	if err != nil {
		return nil, err
	}

	es, err := s.svc.Elections.List(ctx, models.ElectionFilter{
		Status:       models.ElectionStatus(req.str("status")),
		Type:         models.ElectionType(req.str("type")),
		Jurisdiction: req.str("jurisdiction"),
		StartFrom:    from,
		StartTo:      to,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"elections": list(es, encodeElection)}, nil
}

func (s *GRPCServer) activeElections(ctx context.Context, _ request) (map[string]any, error) {
	es, err := s.svc.Elections.Active(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"elections": list(es, encodeElection)}, nil
}

func (s *GRPCServer) upcomingElections(ctx context.Context, _ request) (map[string]any, error) {
	es, err := s.svc.Elections.Upcoming(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"elections": list(es, encodeElection)}, nil
}
