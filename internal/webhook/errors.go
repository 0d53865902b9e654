package webhook

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed send for logs and metrics.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureRemote      FailureKind = "remote"
	FailureUnreachable FailureKind = "unreachable"
	FailureLocal       FailureKind = "local"
)

// RemoteError means the endpoint answered with a non-2xx status.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote rejected message: status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote rejected message: status %d: %s", e.StatusCode, e.Body)
}

// UnreachableError means the request went out but no response came back.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string { return "remote unreachable: " + e.Err.Error() }
func (e *UnreachableError) Unwrap() error { return e.Err }

// LocalError means the request could not be built or dispatched.
type LocalError struct {
	Err error
}

func (e *LocalError) Error() string { return "send request: " + e.Err.Error() }
func (e *LocalError) Unwrap() error { return e.Err }

// Classify reports which transport failure err represents. Errors that did
// not come from this package are treated as local.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return FailureRemote
	}
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return FailureUnreachable
	}
	return FailureLocal
}
