// Package control wires configuration, pools, journal, audit and the health
// server into the executing service.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/dbexec/internal/core/config"
	"github.com/vietddude/dbexec/internal/core/domain"
	"github.com/vietddude/dbexec/internal/exec/profile"
	"github.com/vietddude/dbexec/internal/exec/report"
	"github.com/vietddude/dbexec/internal/exec/retry"
	"github.com/vietddude/dbexec/internal/health"
	redisclient "github.com/vietddude/dbexec/internal/infra/redis"
	"github.com/vietddude/dbexec/internal/infra/storage/postgres"
	"github.com/vietddude/dbexec/migrations"
)

// statsInterval is how often pool usage gauges are refreshed.
const statsInterval = 15 * time.Second

// Config holds the application configuration.
type Config struct {
	Port        int
	Retry       config.RetryConfig
	Redis       redisclient.Config
	Audit       config.AuditConfig
	Resources   []config.ResourceConfig
	JournalKeep int
}

// Service is the main application struct managing the execution layer's
// lifecycle.
type Service struct {
	cfg          Config
	resolver     *profile.Resolver
	manager      *postgres.Manager
	executor     *retry.Executor
	journal      *redisclient.Journal
	redisClient  *redisclient.Client
	audit        *postgres.AuditRepo
	auditDB      *sqlx.DB
	healthServer *health.Server
	log          *slog.Logger

	cancelStats context.CancelFunc
}

// NewService creates a Service with all dependencies initialized.
func NewService(cfg Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	rawCfg := &config.AppConfig{Resources: cfg.Resources}
	resolver := profile.NewResolver(rawCfg)
	manager := postgres.NewManager(log)

	policy := retry.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		DelayCap:     cfg.Retry.DelayCap,
		JitterMax:    cfg.Retry.JitterMax,
	}
	source := retry.SourceFunc(func(ctx context.Context, prof *domain.ResourceProfile) (retry.Handle, error) {
		return manager.Acquire(ctx, prof)
	})
	executor := retry.NewExecutor(resolver, source, policy, log)

	s := &Service{
		cfg:      cfg,
		resolver: resolver,
		manager:  manager,
		executor: executor,
		log:      log,
	}

	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		s.redisClient = client
		s.journal = redisclient.NewJournal(client, cfg.JournalKeep)
		log.Info("Failed-operation journal enabled")
	}

	if cfg.Audit.URL != "" {
		db, err := sqlx.Open("pgx", cfg.Audit.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit db: %w", err)
		}

		goose.SetBaseFS(migrations.FS)
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB, "."); err != nil {
			return nil, fmt.Errorf("failed to migrate audit db: %w", err)
		}

		s.auditDB = db
		s.audit = postgres.NewAuditRepo(db)
		log.Info("Audit trail enabled")
	}

	names := make([]string, 0, len(cfg.Resources))
	for _, r := range cfg.Resources {
		names = append(names, r.Name)
	}
	s.healthServer = health.NewServer(s, names, cfg.Port)

	return s, nil
}

// Start launches the health server and the pool stats collector.
func (s *Service) Start(ctx context.Context) error {
	statsCtx, cancel := context.WithCancel(ctx)
	s.cancelStats = cancel
	s.manager.StartStatsCollector(statsCtx, statsInterval)

	go func() {
		if err := s.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	s.log.Info("Service started", "port", s.cfg.Port, "resources", len(s.cfg.Resources))
	return nil
}

// Stop shuts down the health server and closes every pool.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancelStats != nil {
		s.cancelStats()
	}
	if err := s.healthServer.Stop(ctx); err != nil {
		s.log.Warn("Health server shutdown error", "error", err)
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Redis shutdown error", "error", err)
		}
	}
	if s.auditDB != nil {
		if err := s.auditDB.Close(); err != nil {
			s.log.Warn("Audit db shutdown error", "error", err)
		}
	}
	return s.manager.Close()
}

// Probe resolves a resource and runs one liveness probe against it.
// Implements health.Prober.
func (s *Service) Probe(ctx context.Context, resource string) error {
	prof, err := s.resolver.Resolve(resource)
	if err != nil {
		return err
	}

	conn, err := s.manager.Acquire(ctx, prof)
	if err != nil {
		return err
	}
	defer conn.Release()

	if !conn.EnsureLive(ctx, 5*time.Second) {
		return domain.NewFailure(domain.KindHandleUnusable, "resource handle unusable after probe")
	}
	return nil
}

// Execute runs one operation against a named resource and returns the
// structured result. This is the upward collaborator boundary: callers never
// observe a raw error.
func Execute[T any](
	ctx context.Context,
	s *Service,
	operationName string,
	resourceName string,
	op func(ctx context.Context, h retry.Handle) (T, error),
) report.StructuredResult {
	outcome := retry.Run(ctx, s.executor, operationName, resourceName, op)
	if !outcome.OK() {
		s.recordFailure(ctx, operationName, resourceName, outcome.Failure)
	}
	return report.Render(outcome)
}

// ExecuteSQL runs op with the attempt's checked-out PostgreSQL connection,
// mapping raw driver faults into the boundary failure vocabulary before they
// reach the retry decision.
func ExecuteSQL[T any](
	ctx context.Context,
	s *Service,
	operationName string,
	resourceName string,
	op func(ctx context.Context, conn *postgres.Conn) (T, error),
) report.StructuredResult {
	return Execute(ctx, s, operationName, resourceName, func(ctx context.Context, h retry.Handle) (T, error) {
		conn, ok := h.(*postgres.Conn)
		if !ok {
			var zero T
			return zero, domain.NewFailure(domain.KindHandleUnusable, "handle is not a postgres connection")
		}
		v, err := op(ctx, conn)
		if err != nil {
			return v, postgres.MapError(err)
		}
		return v, nil
	})
}

// recordFailure writes the terminal failure to the journal and audit trail.
// Recording faults are logged and swallowed; they never affect the caller's
// result.
func (s *Service) recordFailure(ctx context.Context, operation, resource string, f *domain.OutcomeFailure) {
	id := uuid.NewString()

	// The call's own context may already be cancelled; recording still gets a
	// short window.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.journal != nil {
		err := s.journal.Record(ctx, redisclient.Entry{
			ID:        id,
			Operation: operation,
			Resource:  resource,
			Code:      f.Classification.Code,
			Transient: f.Classification.Transient(),
			Attempts:  f.Attempts,
			Message:   f.Message,
		})
		if err != nil {
			s.log.Warn("Failed to journal outcome", "error", err)
		}
	}

	if s.audit != nil {
		err := s.audit.Record(ctx, postgres.AuditRecord{
			ID:             id,
			Operation:      operation,
			Resource:       resource,
			Success:        false,
			Attempts:       f.Attempts,
			DiagnosticCode: f.Classification.Code,
			Transient:      f.Classification.Transient(),
			Message:        f.Message,
		})
		if err != nil {
			s.log.Warn("Failed to audit outcome", "error", err)
		}
	}
}
