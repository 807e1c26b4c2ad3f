// Package classify decides whether a failure is transient or permanent.
package classify

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/vietddude/dbexec/internal/core/domain"
)

// maxCauseDepth bounds the walk down the cause chain. Guards against cyclic
// or pathologically deep chains.
const maxCauseDepth = 10

// transientCodes is the fixed table of SQLSTATE codes considered transient.
var transientCodes = map[string]struct{}{
	// Connection class
	"08000": {}, // connection_exception
	"08001": {}, // sqlclient_unable_to_establish_sqlconnection
	"08003": {}, // connection_does_not_exist
	"08004": {}, // sqlserver_rejected_establishment_of_sqlconnection
	"08006": {}, // connection_failure
	// Concurrency class
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	// Resource exhaustion class
	"53000": {}, // insufficient_resources
	"53100": {}, // disk_full
	"53200": {}, // out_of_memory
	"53300": {}, // too_many_connections
}

// Classify maps a failure to exactly one Classification. It is a pure
// function of the failure: a structured diagnostic code anywhere in the
// chain decides via the transient table, otherwise the failure's concrete
// kind is tested against the network-level transient kinds, level by level
// down the cause chain.
func Classify(err error) domain.Classification {
	for depth := 0; err != nil && depth < maxCauseDepth; depth++ {
		if code, ok := diagnosticCode(err); ok {
			if _, transient := transientCodes[code]; transient {
				return domain.Classification{Class: domain.ClassTransient, Code: code}
			}
			return domain.Classification{Class: domain.ClassPermanent, Code: code}
		}
		if networkLevel(err) {
			return domain.Classification{Class: domain.ClassTransient, NetworkLevel: true}
		}
		err = errors.Unwrap(err)
	}
	return domain.Classification{Class: domain.ClassPermanent}
}

// diagnosticCode extracts a structured code from the error at this level
// only; the caller owns the chain walk.
func diagnosticCode(err error) (string, bool) {
	switch e := err.(type) {
	case *pgconn.PgError:
		return e.Code, e.Code != ""
	case *pq.Error:
		return string(e.Code), e.Code != ""
	case *domain.Failure:
		return e.Code, e.Code != ""
	}
	return "", false
}

// networkLevel reports whether the error at this level is one of the
// network-level transient kinds: socket errors, general I/O errors and
// timeouts.
func networkLevel(err error) bool {
	switch err {
	case context.DeadlineExceeded, io.EOF, io.ErrUnexpectedEOF:
		return true
	}

	switch e := err.(type) {
	case *domain.Failure:
		return e.Kind == domain.KindSocket || e.Kind == domain.KindIO || e.Kind == domain.KindTimeout
	case *net.OpError:
		return true
	case syscall.Errno:
		return e == syscall.ECONNREFUSED || e == syscall.ECONNRESET ||
			e == syscall.EPIPE || e == syscall.ETIMEDOUT
	}

	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}
