// Package errors classifies failed calls to a streamgraph server.
package errors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RequestError is a failed call to a streamgraph server, tagged with the
// gRPC code it failed with.
type RequestError struct {
	Op     string
	Server string
	Code   codes.Code
	Err    error
}

var codeHints = map[codes.Code]string{
	codes.DeadlineExceeded: "timed out",
	codes.Canceled:         "canceled",
	codes.Unavailable:      "server unavailable",
	codes.PermissionDenied: "rejected by the server's event rules",
	codes.InvalidArgument:  "invalid argument",
	codes.Unimplemented:    "not supported by the server",
}

func (e *RequestError) Error() string {
	hint, ok := codeHints[e.Code]
	if !ok {
		return fmt.Sprintf("%s on %s failed: %v", e.Op, e.Server, e.Err)
	}
	return fmt.Sprintf("%s on %s: %s: %s", e.Op, e.Server, hint, message(e.Err))
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// message strips the "rpc error: code = ... desc =" prefix of status errors.
func message(err error) string {
	if s, ok := status.FromError(err); ok && s.Message() != "" {
		return s.Message()
	}
	return err.Error()
}

// Code returns the gRPC code of err. Context errors map to their gRPC
// counterparts; errors carrying no status are codes.Unknown.
func Code(err error) codes.Code {
	var re *RequestError
	switch {
	case err == nil:
		return codes.OK
	case errors.As(err, &re):
		return re.Code
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return status.Code(err)
}

// Wrap tags err with the operation and server it came from. nil and errors
// that are already a *RequestError are returned unchanged.
func Wrap(op, server string, err error) error {
	if err == nil {
		return nil
	}
	var re *RequestError
	if errors.As(err, &re) {
		return err
	}
	return &RequestError{Op: op, Server: server, Code: Code(err), Err: err}
}

// IsTimeout reports whether err is a deadline expiry, local or remote.
func IsTimeout(err error) bool {
	return Code(err) == codes.DeadlineExceeded
}

// Permanent reports whether retrying err cannot succeed without a change
// on the server or in the request.
func Permanent(err error) bool {
	switch Code(err) {
	case codes.Unimplemented, codes.PermissionDenied, codes.InvalidArgument, codes.Unauthenticated:
		return true
	}
	return false
}
