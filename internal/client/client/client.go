package client

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"
)

// Client is the transport-agnostic view of the VoterNet backend used by the CLI.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, email, password string) (*structpb.Struct, error)
	Login(ctx context.Context, email, password string) (string, error)
	Call(ctx context.Context, method string, in map[string]any) (*structpb.Struct, error)
	SetAccessToken(token string)
}
