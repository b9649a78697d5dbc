// Package rpc holds the wire contract shared by the gRPC server and client:
// the service and method names and the error detail vocabulary.
//
// Requests and responses are google.protobuf.Struct messages with camelCase
// keys; timestamps travel as RFC 3339 strings.
package rpc

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/voternet/internal/common"
)

const ServiceName = "voternet.v1.VoterNet"

// Method names.
const (
	Ping          = "Ping"
	Register      = "Register"
	Login         = "Login"
	GetProfile    = "GetProfile"
	UpdateProfile = "UpdateProfile"
	AssignRole    = "AssignRole"

	CreateElection    = "CreateElection"
	UpdateElection    = "UpdateElection"
	PublishElection   = "PublishElection"
	ActivateElection  = "ActivateElection"
	CompleteElection  = "CompleteElection"
	CancelElection    = "CancelElection"
	GetElection       = "GetElection"
	ListElections     = "ListElections"
	ActiveElections   = "ActiveElections"
	UpcomingElections = "UpcomingElections"

	RegisterCandidate   = "RegisterCandidate"
	UpdateCandidate     = "UpdateCandidate"
	VerifyCandidate     = "VerifyCandidate"
	DeactivateCandidate = "DeactivateCandidate"
	ReactivateCandidate = "ReactivateCandidate"
	GetCandidate        = "GetCandidate"
	ListCandidates      = "ListCandidates"
	MyCandidacies       = "MyCandidacies"
	IsCandidate         = "IsCandidate"

	RegisterVoter        = "RegisterVoter"
	VerifyVoter          = "VerifyVoter"
	SetVoterEligibility  = "SetVoterEligibility"
	GetVoterRegistration = "GetVoterRegistration"

	CastVote           = "CastVote"
	CheckEligibility   = "CheckEligibility"
	HasVoted           = "HasVoted"
	GetReceipt         = "GetReceipt"
	VerifyVote         = "VerifyVote"
	InvalidateVote     = "InvalidateVote"
	VotingStatistics   = "VotingStatistics"
	ElectionVoteCount  = "ElectionVoteCount"
	CandidateVoteCount = "CandidateVoteCount"
	AuditVotes         = "AuditVotes"

	GetResults        = "GetResults"
	ResultsArchiveURL = "ResultsArchiveURL"
)

// FullMethod returns the gRPC path of method, e.g. "/voternet.v1.VoterNet/Login".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ErrorDomain tags the ErrorInfo detail attached to every domain error.
const ErrorDomain = "voternet"

// ErrorInfo reasons. Each maps to one sentinel in internal/common.
const (
	ReasonValidation      = "VALIDATION"
	ReasonNotAuthorized   = "NOT_AUTHORIZED"
	ReasonForbidden       = "FORBIDDEN"
	ReasonStateConflict   = "STATE_CONFLICT"
	ReasonConflict        = "CONFLICT"
	ReasonNotFound        = "NOT_FOUND"
	ReasonUnauthenticated = "UNAUTHENTICATED"
	ReasonTokenExpired    = "TOKEN_EXPIRED"
	ReasonInvalidToken    = "INVALID_TOKEN"
)

type kind struct {
	err    error
	code   codes.Code
	reason string
}

var kinds = []kind{
	{common.ErrValidation, codes.InvalidArgument, ReasonValidation},
	{common.ErrUnauthorized, codes.PermissionDenied, ReasonNotAuthorized},
	{common.ErrForbidden, codes.PermissionDenied, ReasonForbidden},
	{common.ErrStateConflict, codes.FailedPrecondition, ReasonStateConflict},
	{common.ErrConflict, codes.AlreadyExists, ReasonConflict},
	{common.ErrorNotFound, codes.NotFound, ReasonNotFound},
	{common.ErrorUnauthorized, codes.Unauthenticated, ReasonUnauthenticated},
	{common.ErrTokenExpired, codes.Unauthenticated, ReasonTokenExpired},
	{common.ErrInvalidToken, codes.Unauthenticated, ReasonInvalidToken},
}

// ToStatus converts a domain error into a gRPC status error carrying an
// ErrorInfo detail. ok is false for errors outside the domain vocabulary.
func ToStatus(err error) (st error, ok bool) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			s := status.New(k.code, err.Error())
			if withInfo, derr := s.WithDetails(&errdetails.ErrorInfo{Reason: k.reason, Domain: ErrorDomain}); derr == nil {
				s = withInfo
			}
			return s.Err(), true
		}
	}
	return nil, false
}

// FromStatus maps a status error produced by ToStatus back onto its
// sentinel, so callers can use errors.Is on the client side. Other errors
// are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		for _, k := range kinds {
			if k.reason == info.GetReason() {
				return fmt.Errorf("%w: %s", k.err, trimPrefix(st.Message(), k.err))
			}
		}
	}
	return err
}

// trimPrefix drops the "<sentinel>: " prefix the server side message
// already carries, so wrapping again does not repeat it.
func trimPrefix(msg string, sentinel error) string {
	p := sentinel.Error() + ": "
	if len(msg) >= len(p) && msg[:len(p)] == p {
		return msg[len(p):]
	}
	return msg
}
