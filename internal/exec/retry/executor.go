// Package retry drives operations against pooled resources with bounded,
// jittered exponential backoff. Transient failures are retried up to the
// attempt ceiling; permanent failures fail fast.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/dbexec/internal/core/domain"
	"github.com/vietddude/dbexec/internal/exec/classify"
	"github.com/vietddude/dbexec/internal/exec/metrics"
)

// probeTimeout bounds the liveness probe, separate from the operation timeout.
const probeTimeout = 5 * time.Second

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	DelayCap     time.Duration
	JitterMax    time.Duration
}

// DefaultPolicy provides the reference policy.
var DefaultPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	DelayCap:     5000 * time.Millisecond,
	JitterMax:    100 * time.Millisecond,
}

// Handle is one attempt-scoped resource handle. It is acquired fresh for
// every attempt and released on every exit path; a handle is never carried
// across attempts.
type Handle interface {
	// EnsureLive probes that the handle is usable with a minimal round-trip.
	// Probe failures are swallowed and reported as false.
	EnsureLive(ctx context.Context, timeout time.Duration) bool
	Release()
}

// Source acquires attempt-scoped handles for a resolved profile.
type Source interface {
	Acquire(ctx context.Context, profile *domain.ResourceProfile) (Handle, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, profile *domain.ResourceProfile) (Handle, error)

func (f SourceFunc) Acquire(ctx context.Context, profile *domain.ResourceProfile) (Handle, error) {
	return f(ctx, profile)
}

// Resolver maps logical resource names to profiles.
type Resolver interface {
	Resolve(name string) (*domain.ResourceProfile, error)
}

// Executor composes profile resolution, health validation and error
// classification around arbitrary operations. Each call to Run owns its own
// retry state; an Executor is safe for concurrent use.
type Executor struct {
	resolver Resolver
	source   Source
	policy   Policy
	log      *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewExecutor creates an Executor with the given policy. A zero MaxAttempts
// falls back to the default policy.
func NewExecutor(resolver Resolver, source Source, policy Policy, log *slog.Logger) *Executor {
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		resolver: resolver,
		source:   source,
		policy:   policy,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes op against the named resource, retrying transient failures
// per the executor's policy. The returned Outcome is terminal: a success, or
// a classified failure with the accumulated attempt count.
func Run[T any](
	ctx context.Context,
	e *Executor,
	operationName string,
	resourceName string,
	op func(ctx context.Context, h Handle) (T, error),
) domain.Outcome[T] {
	log := e.log.With("operation", operationName, "resource", resourceName, "call_id", uuid.NewString())

	prof, err := e.resolver.Resolve(resourceName)
	if err != nil {
		cl := classify.Classify(err)
		metrics.OutcomesTotal.WithLabelValues(operationName, resourceName, metrics.OutcomeLabel(false, cl.Transient())).Inc()
		return domain.Fail[T](cl, err.Error(), 1)
	}

	for attempt := 1; ; attempt++ {
		metrics.AttemptsTotal.WithLabelValues(operationName, prof.Name).Inc()

		value, attemptErr := runAttempt(ctx, e, prof, op)
		if attemptErr == nil {
			metrics.OutcomesTotal.WithLabelValues(operationName, prof.Name, metrics.OutcomeLabel(true, false)).Inc()
			log.Debug("operation succeeded", "attempts", attempt)
			return domain.Succeed(value)
		}

		cl := classify.Classify(attemptErr)
		if !cl.Transient() || attempt == e.policy.MaxAttempts {
			metrics.OutcomesTotal.WithLabelValues(operationName, prof.Name, metrics.OutcomeLabel(false, cl.Transient())).Inc()
			return domain.Fail[T](cl, attemptErr.Error(), attempt)
		}

		emit(log, fmt.Sprintf("[Retry] %s attempt %d/%d failed: %s",
			operationName, attempt, e.policy.MaxAttempts, attemptErr.Error()))

		delay := e.backoffDelay(attempt)
		emit(log, fmt.Sprintf("[Retry] Waiting %dms before retry...", delay.Milliseconds()))

		metrics.RetriesTotal.WithLabelValues(operationName, prof.Name).Inc()
		metrics.BackoffSeconds.Observe(delay.Seconds())

		select {
		case <-ctx.Done():
			cl := classify.Classify(ctx.Err())
			metrics.OutcomesTotal.WithLabelValues(operationName, prof.Name, metrics.OutcomeLabel(false, cl.Transient())).Inc()
			return domain.Fail[T](cl, ctx.Err().Error(), attempt)
		case <-time.After(delay):
		}
	}
}

// runAttempt performs one attempt with a freshly acquired, freshly probed
// handle. Panics inside the operation are converted to errors so that every
// fault crosses back into the retry decision as a classifiable failure.
func runAttempt[T any](
	ctx context.Context,
	e *Executor,
	prof *domain.ResourceProfile,
	op func(ctx context.Context, h Handle) (T, error),
) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panic: %v", r)
		}
	}()

	h, err := e.source.Acquire(ctx, prof)
	if err != nil {
		return value, err
	}
	defer h.Release()

	if !h.EnsureLive(ctx, probeTimeout) {
		return value, domain.NewFailure(domain.KindHandleUnusable, "resource handle unusable after probe")
	}

	opCtx, cancel := context.WithTimeout(ctx, prof.OperationTimeout)
	defer cancel()
	return op(opCtx, h)
}

// backoffDelay computes min(cap, initial*2^(attempt-1) + jitter) for the
// delay before attempt+1.
func (e *Executor) backoffDelay(attempt int) time.Duration {
	delay := e.policy.InitialDelay << (attempt - 1)
	if delay <= 0 || delay > e.policy.DelayCap { // shift overflow guard
		delay = e.policy.DelayCap
	}
	delay += e.jitter()
	if delay > e.policy.DelayCap {
		delay = e.policy.DelayCap
	}
	return delay
}

func (e *Executor) jitter() time.Duration {
	if e.policy.JitterMax <= 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.rng.Int63n(int64(e.policy.JitterMax)))
}

// emit writes one diagnostic line. Logging faults never escape the retry loop.
func emit(log *slog.Logger, msg string) {
	defer func() { _ = recover() }()
	log.Warn(msg)
}
