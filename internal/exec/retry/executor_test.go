package retry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vietddude/dbexec/internal/core/config"
	"github.com/vietddude/dbexec/internal/core/domain"
	"github.com/vietddude/dbexec/internal/exec/profile"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeHandle struct {
	live     bool
	released int
}

func (h *fakeHandle) EnsureLive(ctx context.Context, timeout time.Duration) bool { return h.live }
func (h *fakeHandle) Release()                                                   { h.released++ }

type fakeSource struct {
	handle     *fakeHandle
	acquireErr error
	acquired   int
}

func (s *fakeSource) Acquire(ctx context.Context, prof *domain.ResourceProfile) (Handle, error) {
	s.acquired++
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.handle, nil
}

// fastPolicy keeps test backoffs short.
var fastPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: 5 * time.Millisecond,
	DelayCap:     25 * time.Millisecond,
	JitterMax:    2 * time.Millisecond,
}

func testResolver(t *testing.T) Resolver {
	t.Helper()
	return profile.NewResolver(&config.AppConfig{
		Resources: []config.ResourceConfig{
			{Name: "orders", URL: "postgres://localhost:5432/orders"},
		},
	})
}

func newTestExecutor(t *testing.T, source Source, logBuf *bytes.Buffer) *Executor {
	t.Helper()
	log := slog.Default()
	if logBuf != nil {
		log = slog.New(slog.NewTextHandler(logBuf, nil))
	}
	return NewExecutor(testResolver(t), source, fastPolicy, log)
}

// =============================================================================
// Scenarios
// =============================================================================

// TestRun_RetriesThenSucceeds verifies that an operation failing twice with a
// connection-failure code succeeds on the third attempt.
func TestRun_RetriesThenSucceeds(t *testing.T) {
	source := &fakeSource{handle: &fakeHandle{live: true}}
	var logBuf bytes.Buffer
	e := newTestExecutor(t, source, &logBuf)

	calls := 0
	out := Run(context.Background(), e, "GetOrder", "orders", func(ctx context.Context, h Handle) (string, error) {
		calls++
		if calls <= 2 {
			return "", &pgconn.PgError{Code: "08006", Message: "connection failure"}
		}
		return "ok", nil
	})

	if !out.OK() {
		t.Fatalf("expected success, got failure: %+v", out.Failure)
	}
	if out.Value != "ok" {
		t.Errorf("expected value ok, got %q", out.Value)
	}
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	if source.acquired != 3 {
		t.Errorf("expected 3 handle acquisitions, got %d", source.acquired)
	}

	logs := logBuf.String()
	if n := strings.Count(logs, "failed:"); n != 2 {
		t.Errorf("expected 2 retry failure lines, got %d:\n%s", n, logs)
	}
	if n := strings.Count(logs, "before retry"); n != 2 {
		t.Errorf("expected 2 waiting lines, got %d:\n%s", n, logs)
	}
}

// TestRun_PermanentFailsFast verifies that a constraint violation fails
// immediately without retries.
func TestRun_PermanentFailsFast(t *testing.T) {
	source := &fakeSource{handle: &fakeHandle{live: true}}
	var logBuf bytes.Buffer
	e := newTestExecutor(t, source, &logBuf)

	calls := 0
	out := Run(context.Background(), e, "InsertOrder", "orders", func(ctx context.Context, h Handle) (int, error) {
		calls++
		return 0, &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	})

	if out.OK() {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
	if out.Failure.Attempts != 1 {
		t.Errorf("expected attempts=1, got %d", out.Failure.Attempts)
	}
	if out.Failure.Classification.Transient() {
		t.Error("expected permanent classification")
	}
	if out.Failure.Classification.Code != "23505" {
		t.Errorf("expected code 23505, got %q", out.Failure.Classification.Code)
	}
	if strings.Contains(logBuf.String(), "[Retry]") {
		t.Errorf("expected zero retry log lines:\n%s", logBuf.String())
	}
}

// TestRun_AttemptCeiling verifies that a persistent transient failure is
// surfaced after exactly MaxAttempts invocations.
func TestRun_AttemptCeiling(t *testing.T) {
	source := &fakeSource{handle: &fakeHandle{live: true}}
	e := newTestExecutor(t, source, nil)

	calls := 0
	out := Run(context.Background(), e, "GetOrder", "orders", func(ctx context.Context, h Handle) (string, error) {
		calls++
		return "", &pgconn.PgError{Code: "40001", Message: "serialization failure"}
	})

	if out.OK() {
		t.Fatal("expected failure")
	}
	if calls != fastPolicy.MaxAttempts {
		t.Errorf("expected %d invocations, got %d", fastPolicy.MaxAttempts, calls)
	}
	if out.Failure.Attempts != fastPolicy.MaxAttempts {
		t.Errorf("expected attempts=%d, got %d", fastPolicy.MaxAttempts, out.Failure.Attempts)
	}
	if !out.Failure.Classification.Transient() {
		t.Error("exhausted transient failure should keep its transient classification")
	}
}

// TestRun_UnknownResource verifies that resolution failure is a permanent
// outcome without any handle acquisition.
func TestRun_UnknownResource(t *testing.T) {
	source := &fakeSource{handle: &fakeHandle{live: true}}
	e := newTestExecutor(t, source, nil)

	out := Run(context.Background(), e, "GetOrder", "unknown", func(ctx context.Context, h Handle) (string, error) {
		t.Fatal("operation must not run for an unknown resource")
		return "", nil
	})

	if out.OK() {
		t.Fatal("expected failure")
	}
	if out.Failure.Classification.Transient() {
		t.Error("unknown resource should be permanent")
	}
	if out.Failure.Classification.Code != "" {
		t.Errorf("unknown resource should carry no diagnostic code, got %q", out.Failure.Classification.Code)
	}
	if out.Failure.Attempts != 1 {
		t.Errorf("expected attempts=1, got %d", out.Failure.Attempts)
	}
	if source.acquired != 0 {
		t.Errorf("expected no acquisitions, got %d", source.acquired)
	}
}

// TestRun_ProbeFailureCounts verifies that a failed health probe consumes an
// attempt and is classified, not silently skipped.
func TestRun_ProbeFailureCounts(t *testing.T) {
	source := &fakeSource{handle: &fakeHandle{live: false}}
	e := newTestExecutor(t, source, nil)

	calls := 0
	out := Run(context.Background(), e, "GetOrder", "orders", func(ctx context.Context, h Handle) (string, error) {
		calls++
		return "", nil
	})

	if out.OK() {
		t.Fatal("expected failure")
	}
	if calls != 0 {
		t.Errorf("operation must not run on an unusable handle, ran %d times", calls)
	}
	if out.Failure.Attempts != 1 {
		t.Errorf("probe failure should consume one attempt, got %d", out.Failure.Attempts)
	}
	if out.Failure.Classification.Transient() {
		t.Error("handle-unusable should be permanent")
	}
	if source.handle.released == 0 {
		t.Error("handle must be released after a failed probe")
	}
}

// TestRun_TransientAcquireRetried verifies that acquisition failures go
// through the same classification path as operation failures.
func TestRun_TransientAcquireRetried(t *testing.T) {
	source := &fakeSource{
		acquireErr: domain.CodeFailure("08001", "unable to establish connection", nil),
	}
	e := newTestExecutor(t, source, nil)

	out := Run(context.Background(), e, "GetOrder", "orders", func(ctx context.Context, h Handle) (string, error) {
		t.Fatal("operation must not run without a handle")
		return "", nil
	})

	if out.OK() {
		t.Fatal("expected failure")
	}
	if source.acquired != fastPolicy.MaxAttempts {
		t.Errorf("expected %d acquisition attempts, got %d", fastPolicy.MaxAttempts, source.acquired)
	}
	if !out.Failure.Classification.Transient() {
		t.Error("connection-establishment failure should be transient")
	}
}

// TestRun_PanicConverted verifies that a panicking operation surfaces as a
// classified failure, never as a propagated panic.
func TestRun_PanicConverted(t *testing.T) {
	source := &fakeSource{handle: &fakeHandle{live: true}}
	e := newTestExecutor(t, source, nil)

	out := Run(context.Background(), e, "GetOrder", "orders", func(ctx context.Context, h Handle) (string, error) {
		panic("boom")
	})

	if out.OK() {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.Failure.Message, "panic") {
		t.Errorf("expected panic message, got %q", out.Failure.Message)
	}
	if out.Failure.Classification.Transient() {
		t.Error("panic should be permanent")
	}
	if source.handle.released == 0 {
		t.Error("handle must be released after a panic")
	}
}

// TestRun_ContextCancelledDuringBackoff verifies that an abandoned call
// returns a failure outcome promptly.
func TestRun_ContextCancelledDuringBackoff(t *testing.T) {
	source := &fakeSource{handle: &fakeHandle{live: true}}
	e := NewExecutor(testResolver(t), source, Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		DelayCap:     5 * time.Second,
		JitterMax:    time.Millisecond,
	}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := Run(ctx, e, "GetOrder", "orders", func(ctx context.Context, h Handle) (string, error) {
		return "", &pgconn.PgError{Code: "08006"}
	})

	if out.OK() {
		t.Fatal("expected failure")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancelled call should return promptly, took %v", elapsed)
	}
}

// =============================================================================
// Backoff
// =============================================================================

func TestBackoffDelay_DefaultPolicyBounds(t *testing.T) {
	e := NewExecutor(testResolver(t), &fakeSource{}, DefaultPolicy, nil)

	tests := []struct {
		attempt  int
		min, max time.Duration
	}{
		{1, 500 * time.Millisecond, 600 * time.Millisecond},
		{2, 1000 * time.Millisecond, 1100 * time.Millisecond},
		{3, 2000 * time.Millisecond, 2100 * time.Millisecond},
	}

	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			d := e.backoffDelay(tt.attempt)
			if d < tt.min || d >= tt.max {
				t.Fatalf("backoffDelay(%d) = %v, want [%v, %v)", tt.attempt, d, tt.min, tt.max)
			}
		}
	}

	// Large attempts saturate at the cap.
	for i := 0; i < 50; i++ {
		if d := e.backoffDelay(10); d > DefaultPolicy.DelayCap {
			t.Fatalf("backoffDelay(10) = %v exceeds cap %v", d, DefaultPolicy.DelayCap)
		}
	}
}

func TestBackoffDelay_NonDecreasing(t *testing.T) {
	e := NewExecutor(testResolver(t), &fakeSource{}, Policy{
		MaxAttempts:  10,
		InitialDelay: 500 * time.Millisecond,
		DelayCap:     5000 * time.Millisecond,
		JitterMax:    1, // effectively zero jitter, keeps the sequence comparable
	}, nil)

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := e.backoffDelay(attempt)
		if d < prev {
			t.Fatalf("delay sequence decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		prev = d
	}
}
