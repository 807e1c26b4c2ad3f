package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// AuditRecord is one terminal outcome persisted for operator inspection.
type AuditRecord struct {
	ID             string    `db:"id"`
	Operation      string    `db:"operation"`
	Resource       string    `db:"resource"`
	Success        bool      `db:"success"`
	Attempts       int       `db:"attempts"`
	DiagnosticCode string    `db:"diagnostic_code"`
	Transient      bool      `db:"transient"`
	Message        string    `db:"message"`
	CreatedAt      time.Time `db:"created_at"`
}

// AuditRepo persists terminal outcomes to the exec_audit table.
type AuditRepo struct {
	db *sqlx.DB
}

// NewAuditRepo creates a new audit repository.
func NewAuditRepo(db *sqlx.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Record inserts one audit row.
func (r *AuditRepo) Record(ctx context.Context, rec AuditRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO exec_audit (id, operation, resource, success, attempts, diagnostic_code, transient, message, created_at)
		VALUES (:id, :operation, :resource, :success, :attempts, :diagnostic_code, :transient, :message, :created_at)`,
		rec,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// RecentFailures returns the latest failed outcomes for a resource.
func (r *AuditRepo) RecentFailures(ctx context.Context, resource string, limit int) ([]AuditRecord, error) {
	var recs []AuditRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT id, operation, resource, success, attempts, diagnostic_code, transient, message, created_at
		FROM exec_audit
		WHERE resource = $1 AND success = false
		ORDER BY created_at DESC
		LIMIT $2`,
		resource, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return recs, nil
}
