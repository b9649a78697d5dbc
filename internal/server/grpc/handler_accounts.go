package grpc

import (
	"context"

	"github.com/dmitrijs2005/voternet/internal/server/models"
	"github.com/dmitrijs2005/voternet/internal/server/services"
)

func (s *GRPCServer) ping(context.Context, request) (map[string]any, error) {
	return map[string]any{"status": "OK"}, nil
}

func (s *GRPCServer) register(ctx context.Context, req request) (map[string]any, error) {
	if err := req.require("email", "password"); err != nil {
		return nil, err
	}
	u, err := s.svc.Users.Register(ctx, req.str("email"), req.str("password"))
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return map[string]any{"user": encodeUser(u)}, nil
}

func (s *GRPCServer) login(ctx context.Context, req request) (map[string]any, error) {
	token, err := s.svc.Users.Login(ctx, req.str("email"), req.str("password"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"accessToken": token}, nil
}

func (s *GRPCServer) getProfile(ctx context.Context, _ request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Users.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": encodeUser(u)}, nil
}

func (s *GRPCServer) updateProfile(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Users.UpdateProfile(ctx, id, services.ProfileUpdate{
		FirstName: req.optStr("firstName"),
		LastName:  req.optStr("lastName"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": encodeUser(u)}, nil
}

func (s *GRPCServer) assignRole(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("userId", "role"); err != nil {
		return nil, err
	}
	u, err := s.svc.Users.AssignRole(ctx, id, req.str("userId"), models.Role(req.str("role")))
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": encodeUser(u)}, nil
}

func (s *GRPCServer) registerVoter(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := s.svc.Voters.Register(ctx, id, req.optStr("voterIdNumber"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"registration": encodeRegistration(reg)}, nil
}

func (s *GRPCServer) verifyVoter(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("userId"); err != nil {
		return nil, err
	}
	reg, err := s.svc.Voters.VerifyEligibility(ctx, id, req.str("userId"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"registration": encodeRegistration(reg)}, nil
}

func (s *GRPCServer) setVoterEligibility(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.require("userId"); err != nil {
		return nil, err
	}
	reg, err := s.svc.Voters.SetEligible(ctx, id, req.str("userId"), req.boolean("eligible"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"registration": encodeRegistration(reg)}, nil
}

// getVoterRegistration defaults to the caller's own registration.
func (s *GRPCServer) getVoterRegistration(ctx context.Context, req request) (map[string]any, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.str("userId")
	if userID == "" {
		userID = id.UserID
	}
	reg, err := s.svc.Voters.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"registration": encodeRegistration(reg)}, nil
}
