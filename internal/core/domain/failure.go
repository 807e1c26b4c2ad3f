package domain

import "fmt"

// FailureKind tags a failure with the vocabulary used at the collaborator
// boundary. The resource client maps its own faults into these kinds before
// they reach the executor.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindSocket              // connection-level socket failure
	KindIO                  // general I/O failure
	KindTimeout             // attempt or probe deadline exceeded
	KindResourceNotFound    // no configuration for the logical resource name
	KindHandleUnusable      // handle failed its liveness probe
)

// String returns a label for logs and metrics.
func (k FailureKind) String() string {
	switch k {
	case KindSocket:
		return "socket"
	case KindIO:
		return "io"
	case KindTimeout:
		return "timeout"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindHandleUnusable:
		return "handle_unusable"
	default:
		return "unknown"
	}
}

// Failure is the boundary error type. Code carries a SQLSTATE-style
// diagnostic code when the underlying fault provided one; Cause preserves
// the original error chain.
type Failure struct {
	Kind  FailureKind
	Code  string
	Msg   string
	Cause error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Msg, f.Cause)
	}
	return f.Msg
}

func (f *Failure) Unwrap() error { return f.Cause }

// NewFailure creates a Failure without an underlying cause.
func NewFailure(kind FailureKind, msg string) *Failure {
	return &Failure{Kind: kind, Msg: msg}
}

// WrapFailure creates a Failure preserving the underlying cause.
func WrapFailure(kind FailureKind, msg string, cause error) *Failure {
	return &Failure{Kind: kind, Msg: msg, Cause: cause}
}

// CodeFailure creates a Failure carrying a structured diagnostic code.
func CodeFailure(code, msg string, cause error) *Failure {
	return &Failure{Kind: KindUnknown, Code: code, Msg: msg, Cause: cause}
}
