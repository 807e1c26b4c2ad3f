package postgres

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/vietddude/dbexec/internal/core/domain"
)

// MapError converts a driver-level error into the boundary Failure
// vocabulary, preserving the original chain. Returns nil for nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return domain.CodeFailure(pgErr.Code, pgErr.Message, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return domain.CodeFailure(string(pqErr.Code), pqErr.Message, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapFailure(domain.KindTimeout, "operation timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.WrapFailure(domain.KindTimeout, "network timeout", err)
		}
		return domain.WrapFailure(domain.KindSocket, "network failure", err)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.WrapFailure(domain.KindIO, "connection closed unexpectedly", err)
	}

	return domain.WrapFailure(domain.KindUnknown, "database error", err)
}
