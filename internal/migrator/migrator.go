// Package migrator drives the end-to-end migrate pipeline: introspect,
// diff, render, then execute inside a single transaction.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hiveql/hive/internal/differ"
	"github.com/hiveql/hive/internal/introspect"
	"github.com/hiveql/hive/internal/metrics"
	"github.com/hiveql/hive/internal/model"
	"github.com/hiveql/hive/internal/sqlgen"
)

// Error is MigrationError: raised on the first failing DDL statement. It
// carries the statement that failed so the caller can report it verbatim.
type Error struct {
	Statement string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("migration failed executing %q: %v", e.Statement, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result describes the outcome of one Run.
type Result struct {
	// RunID correlates this invocation's log lines and metrics.
	RunID string
	// Statements is the ordered list of DDL statements that were executed.
	// When a statement fails, it holds only the statements before the
	// failing one (which the rollback undoes); the failing statement is
	// carried by the returned *Error.
	Statements []string
	// InSync is true when the plan was empty: current already matches
	// target.
	InSync bool
}

// Runner executes the migrate pipeline against a *sql.DB. Metrics is
// optional; a nil Metrics disables instrumentation entirely.
type Runner struct {
	DB      *sql.DB
	Dialect sqlgen.MultiDialect
	Metrics *metrics.Metrics
}

// New returns a Runner targeting db with the default PostgreSQL dialect.
func New(db *sql.DB) *Runner {
	return &Runner{DB: db, Dialect: sqlgen.Postgres{}}
}

// Run executes the six-step algorithm: introspect, diff, render, begin,
// execute each statement in order, commit. On any statement failure the
// transaction is rolled back and the error is returned as a *Error
// annotated with the failing statement. If ctx is cancelled mid-execution
// the in-flight transaction is rolled back and the partial plan discarded.
func (r *Runner) Run(ctx context.Context, target model.Schema) (Result, error) {
	runID := uuid.New().String()
	log := slog.With(slog.String("run_id", runID))
	start := time.Now()

	current, err := introspect.Introspect(ctx, r.DB)
	if err != nil {
		r.recordError(0, start, "introspect")
		return Result{RunID: runID}, err
	}

	ops := differ.Diff(current, target)
	statements := sqlgen.Plan(r.Dialect, ops)

	if len(statements) == 0 {
		log.Info("schema already in sync")
		recordRun(r.Metrics, 0, 0, time.Since(start), "")
		return Result{RunID: runID, InSync: true}, nil
	}

	log.Info("migration plan computed", slog.Int("statements", len(statements)))

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		r.recordError(len(statements), start, "begin")
		return Result{RunID: runID, Statements: nil}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	executed := make([]string, 0, len(statements))
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			r.recordError(len(statements), start, "execute")
			return Result{RunID: runID, Statements: executed}, &Error{Statement: stmt, Err: err}
		}
		executed = append(executed, stmt)
		log.Info("executed statement", slog.String("sql", stmt))
	}

	if err := tx.Commit(); err != nil {
		r.recordError(len(statements), start, "commit")
		return Result{RunID: runID, Statements: executed}, fmt.Errorf("commit transaction: %w", err)
	}

	recordRun(r.Metrics, len(statements), len(executed), time.Since(start), "")
	return Result{RunID: runID, Statements: executed, InSync: false}, nil
}

func (r *Runner) recordError(planned int, start time.Time, stage string) {
	recordRun(r.Metrics, planned, 0, time.Since(start), stage)
}

// recordRun lets Run call through a possibly-nil *metrics.Metrics without a
// nil check at every call site.
func recordRun(m *metrics.Metrics, planned, executed int, duration time.Duration, stage string) {
	if m == nil {
		return
	}
	m.RecordRun(planned, executed, duration, stage)
}
