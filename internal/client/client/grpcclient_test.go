package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/voternet/internal/common"
	"github.com/dmitrijs2005/voternet/internal/rpc"
)

/*************
 * Fake connection
 *************/

type fakeConn struct {
	lastMethod string
	lastReq    *structpb.Struct
	lastMD     metadata.MD
	resp       map[string]any
	err        error
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	f.lastMethod = method
	f.lastReq = args.(*structpb.Struct)
	f.lastMD, _ = metadata.FromOutgoingContext(ctx)
	if f.err != nil {
		return f.err
	}
	s, err := structpb.NewStruct(f.resp)
	if err != nil {
		return err
	}
	reply.(*structpb.Struct).Fields = s.Fields
	return nil
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("not supported")
}

/*************
 * accessTokenInterceptor tests
 *************/

func TestInterceptor_AttachesToken(t *testing.T) {
	c := &GRPCClient{}
	c.SetAccessToken("A1")

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		toks := md.Get(common.AccessTokenHeaderName)
		require.Equal(t, []string{"A1"}, toks)
		return nil
	}

	require.NoError(t, c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker))
}

func TestInterceptor_ReplacesExistingToken(t *testing.T) {
	c := &GRPCClient{}
	c.SetAccessToken("fresh")
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "stale")

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Equal(t, []string{"fresh"}, md.Get(common.AccessTokenHeaderName))
		return nil
	}

	require.NoError(t, c.accessTokenInterceptor(ctx, "/svc/Method", nil, nil, nil, invoker))
}

func TestInterceptor_NoTokenNoHeader(t *testing.T) {
	c := &GRPCClient{}
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Empty(t, md.Get(common.AccessTokenHeaderName))
		return nil
	}
	require.NoError(t, c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker))
}

/*************
 * mapError tests
 *************/

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	st, ok := rpc.ToStatus(fmt.Errorf("%w: election is not active", common.ErrStateConflict))
	require.True(t, ok)
	err := c.mapError(st)
	require.ErrorIs(t, err, common.ErrStateConflict)
	require.Equal(t, "state conflict: election is not active", err.Error())

	require.ErrorIs(t, c.mapError(status.Error(codes.Unavailable, "x")), ErrUnavailable)
	require.ErrorIs(t, c.mapError(status.Error(codes.DeadlineExceeded, "x")), ErrUnavailable)
	require.ErrorContains(t, c.mapError(status.Error(codes.Internal, "boom")), "rpc error:")
	require.ErrorContains(t, c.mapError(errors.New("plain")), "rpc error:")
	require.NoError(t, c.mapError(nil))
}

/*************
 * Call / Ping / Login tests
 *************/

func TestCall_EncodesRequest(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"voted": true}}
	c := &GRPCClient{conn: f}

	out, err := c.Call(context.Background(), rpc.HasVoted, map[string]any{"electionId": "e-1"})
	require.NoError(t, err)
	require.True(t, out.GetFields()["voted"].GetBoolValue())
	require.Equal(t, rpc.FullMethod(rpc.HasVoted), f.lastMethod)
	require.Equal(t, "e-1", f.lastReq.GetFields()["electionId"].GetStringValue())
}

func TestCall_RejectsUnencodableInput(t *testing.T) {
	c := &GRPCClient{conn: &fakeConn{}}
	_, err := c.Call(context.Background(), rpc.Ping, map[string]any{"bad": make(chan int)})
	require.ErrorContains(t, err, "encode request")
}

func TestPing(t *testing.T) {
	c := &GRPCClient{conn: &fakeConn{resp: map[string]any{"status": "OK"}}}
	require.NoError(t, c.Ping(context.Background()))

	c = &GRPCClient{conn: &fakeConn{resp: map[string]any{"status": "DEGRADED"}}}
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)

	c = &GRPCClient{conn: &fakeConn{err: status.Error(codes.Unavailable, "down")}}
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestLogin_StoresToken(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"accessToken": "T"}}
	c := &GRPCClient{conn: f}

	token, err := c.Login(context.Background(), "a@example.org", "secret-pw")
	require.NoError(t, err)
	require.Equal(t, "T", token)
	require.Equal(t, "T", c.AccessToken())
	require.Equal(t, "a@example.org", f.lastReq.GetFields()["email"].GetStringValue())
}

func TestLogin_EmptyTokenIsBadResponse(t *testing.T) {
	c := &GRPCClient{conn: &fakeConn{resp: map[string]any{}}}
	_, err := c.Login(context.Background(), "a@example.org", "secret-pw")
	require.ErrorIs(t, err, ErrBadResponse)
	require.Empty(t, c.AccessToken())
}

func TestClose_NoConnection(t *testing.T) {
	require.NoError(t, (&GRPCClient{}).Close())
}

/*************
 * Over a real connection
 *************/

type echoServer struct{}

func echoDesc() *grpc.ServiceDesc {
	handler := func(fn func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
		return func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			return fn(ctx, in)
		}
	}
	return &grpc.ServiceDesc{
		ServiceName: rpc.ServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: rpc.Login, Handler: handler(func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return structpb.NewStruct(map[string]any{"accessToken": "tok-1"})
			})},
			{MethodName: rpc.HasVoted, Handler: handler(func(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
				md, _ := metadata.FromIncomingContext(ctx)
				if v := md.Get(common.AccessTokenHeaderName); len(v) == 0 || v[0] != "tok-1" {
					st, _ := rpc.ToStatus(common.ErrInvalidToken)
					return nil, st
				}
				return structpb.NewStruct(map[string]any{"voted": false})
			})},
		},
	}
}

func TestGRPCClient_OverBufconn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(echoDesc(), echoServer{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c := &GRPCClient{endpointURL: "passthrough:///bufnet", timeout: 5 * time.Second}
	require.NoError(t, c.InitGRPCClient(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})))
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()

	_, err := c.Call(ctx, rpc.HasVoted, map[string]any{"electionId": "e-1"})
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = c.Login(ctx, "a@example.org", "secret-pw")
	require.NoError(t, err)

	out, err := c.Call(ctx, rpc.HasVoted, map[string]any{"electionId": "e-1"})
	require.NoError(t, err)
	require.False(t, out.GetFields()["voted"].GetBoolValue())

	_, err = c.Call(ctx, rpc.GetResults, nil)
	require.Equal(t, codes.Unimplemented, status.Code(errors.Unwrap(err)))
}
