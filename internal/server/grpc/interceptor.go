package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/rpc"
	"github.com/dmitrijs2005/voternet/internal/server/identity"
)

// accessTokenInterceptor resolves the access token of non-public methods
// into an identity.Identity stored in the request context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.isPublic(info.FullMethod) {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id, err := s.svc.Users.Identity(ctx, accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrInvalidToken) {
			st, _ := rpc.ToStatus(err)
			return nil, st
		}
		s.logger.Error(ctx, "token resolution failed", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return handler(identity.NewContext(ctx, id), req)
}

// actor returns the caller placed in ctx by the interceptor.
func actor(ctx context.Context) (identity.Identity, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return identity.Identity{}, common.ErrorUnauthorized
	}
	return id, nil
}

// toStatus converts handler errors into gRPC statuses. Anything outside the
// domain vocabulary is logged and reported as Internal.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	if st, ok := rpc.ToStatus(err); ok {
		s.logger.Debug(ctx, "request rejected", "method", method, "error", err)
		return st
	}
	s.logger.Error(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}
