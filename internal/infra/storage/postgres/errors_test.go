package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vietddude/dbexec/internal/core/domain"
)

func TestMapError_Nil(t *testing.T) {
	if MapError(nil) != nil {
		t.Fatal("MapError(nil) should be nil")
	}
}

func TestMapError_PgError(t *testing.T) {
	src := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	err := MapError(fmt.Errorf("exec: %w", src))

	var f *domain.Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *domain.Failure, got %T", err)
	}
	if f.Code != "40001" {
		t.Errorf("code = %q, want 40001", f.Code)
	}
	if !errors.Is(err, src) {
		t.Error("original cause lost from chain")
	}
}

func TestMapError_Kinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind domain.FailureKind
	}{
		{"deadline", context.DeadlineExceeded, domain.KindTimeout},
		{"socket", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, domain.KindSocket},
		{"unknown", errors.New("boom"), domain.KindUnknown},
	}

	for _, tt := range tests {
		err := MapError(tt.err)
		var f *domain.Failure
		if !errors.As(err, &f) {
			t.Fatalf("%s: expected *domain.Failure, got %T", tt.name, err)
		}
		if f.Kind != tt.kind {
			t.Errorf("%s: kind = %v, want %v", tt.name, f.Kind, tt.kind)
		}
	}
}
