// Package grpc exposes the voting services over gRPC. The service has no
// generated stubs: every method takes and returns a google.protobuf.Struct
// and is registered through a hand-written grpc.ServiceDesc.
package grpc

import (
	"context"
	"net"
	"sort"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/voternet/internal/logging"
	"github.com/dmitrijs2005/voternet/internal/rpc"
)

type handlerFunc func(ctx context.Context, req request) (map[string]any, error)

type route struct {
	public bool
	h      handlerFunc
}

type GRPCServer struct {
	address string
	logger  logging.Logger
	svc     Services
	routes  map[string]route
}

func NewGRPCServer(address string, l logging.Logger, svc Services) *GRPCServer {
	if l == nil {
		l = logging.Nop{}
	}
	s := &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		svc:     svc,
	}
	s.routes = s.routeTable()
	return s
}

func (s *GRPCServer) routeTable() map[string]route {
	return map[string]route{
		rpc.Ping:          {public: true, h: s.ping},
		rpc.Register:      {public: true, h: s.register},
		rpc.Login:         {public: true, h: s.login},
		rpc.GetProfile:    {h: s.getProfile},
		rpc.UpdateProfile: {h: s.updateProfile},
		rpc.AssignRole:    {h: s.assignRole},

		rpc.CreateElection:    {h: s.createElection},
		rpc.UpdateElection:    {h: s.updateElection},
		rpc.PublishElection:   {h: s.publishElection},
		rpc.ActivateElection:  {h: s.activateElection},
		rpc.CompleteElection:  {h: s.completeElection},
		rpc.CancelElection:    {h: s.cancelElection},
		rpc.GetElection:       {public: true, h: s.getElection},
		rpc.ListElections:     {public: true, h: s.listElections},
		rpc.ActiveElections:   {public: true, h: s.activeElections},
		rpc.UpcomingElections: {public: true, h: s.upcomingElections},

		rpc.RegisterCandidate:   {h: s.registerCandidate},
		rpc.UpdateCandidate:     {h: s.updateCandidate},
		rpc.VerifyCandidate:     {h: s.verifyCandidate},
		rpc.DeactivateCandidate: {h: s.deactivateCandidate},
		rpc.ReactivateCandidate: {h: s.reactivateCandidate},
		rpc.GetCandidate:        {public: true, h: s.getCandidate},
		rpc.ListCandidates:      {public: true, h: s.listCandidates},
		rpc.MyCandidacies:       {h: s.myCandidacies},
		rpc.IsCandidate:         {h: s.isCandidate},

		rpc.RegisterVoter:        {h: s.registerVoter},
		rpc.VerifyVoter:          {h: s.verifyVoter},
		rpc.SetVoterEligibility:  {h: s.setVoterEligibility},
		rpc.GetVoterRegistration: {h: s.getVoterRegistration},

		rpc.CastVote:           {h: s.castVote},
		rpc.CheckEligibility:   {h: s.checkEligibility},
		rpc.HasVoted:           {h: s.hasVoted},
		rpc.GetReceipt:         {h: s.getReceipt},
		rpc.VerifyVote:         {public: true, h: s.verifyVote},
		rpc.InvalidateVote:     {h: s.invalidateVote},
		rpc.VotingStatistics:   {public: true, h: s.votingStatistics},
		rpc.ElectionVoteCount:  {public: true, h: s.electionVoteCount},
		rpc.CandidateVoteCount: {public: true, h: s.candidateVoteCount},
		rpc.AuditVotes:         {h: s.auditVotes},

		rpc.GetResults:        {public: true, h: s.getResults},
		rpc.ResultsArchiveURL: {public: true, h: s.resultsArchiveURL},
	}
}

// ServiceDesc describes the VoterNet service for grpc.Server.RegisterService.
func (s *GRPCServer) ServiceDesc() *grpc.ServiceDesc {
	names := make([]string, 0, len(s.routes))
	for name := range s.routes {
		names = append(names, name)
	}
	sort.Strings(names)

	desc := &grpc.ServiceDesc{
		ServiceName: rpc.ServiceName,
		HandlerType: (*any)(nil),
		Metadata:    "voternet/v1/voternet.proto",
	}
	for _, name := range names {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: name, Handler: s.unary(name)})
	}
	return desc
}

func (s *GRPCServer) unary(method string) grpc.MethodHandler {
	full := rpc.FullMethod(method)
	call := func(ctx context.Context, req any) (any, error) {
		return s.dispatch(ctx, method, req.(*structpb.Struct))
	}

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: full}, call)
	}
}

func (s *GRPCServer) dispatch(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out, err := s.routes[method].h(ctx, newRequest(in))
	if err != nil {
		return nil, s.toStatus(ctx, method, err)
	}
	reply, err := structpb.NewStruct(out)
	if err != nil {
		return nil, s.toStatus(ctx, method, err)
	}
	return reply, nil
}

func (s *GRPCServer) isPublic(fullMethod string) bool {
	for name, r := range s.routes {
		if rpc.FullMethod(name) == fullMethod {
			return r.public
		}
	}
	return false
}

// NewServer builds a grpc.Server with the access token interceptor and the
// VoterNet service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(s.ServiceDesc(), s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
