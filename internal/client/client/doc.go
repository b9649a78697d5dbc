// Package client is the gRPC client for the VoterNet backend.
//
// Requests and responses are google.protobuf.Struct messages keyed by the
// camelCase field names the server documents for each method. GRPCClient
// attaches the access token to every call through a unary interceptor and
// maps failed calls back onto the sentinel errors in package common, so
// callers can match them with errors.Is. Transport failures surface as
// ErrUnavailable.
package client
