package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
	"github.com/matiasleandrokruk/crmops/internal/infra/eventbus"
)

// timeLayout keeps stored timestamps lexically ordered.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var ErrInvalidInvocation = errors.New("invalid invocation")

// AuditService records operation invocations.
// All operations are append-only; no updates or deletes are supported
//
//nolint:revive // stable domain service name referenced across layers
type AuditService struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditService creates a new audit service. logger may be nil.
func NewAuditService(db *sql.DB, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{db: db, logger: logger}
}

// Record appends an invocation. ID and CreatedAt are filled when empty.
func (s *AuditService) Record(ctx context.Context, inv *Invocation) error {
	if inv == nil || inv.Operation == "" {
		return fmt.Errorf("%w: operation is required", ErrInvalidInvocation)
	}
	if inv.Outcome != OutcomeSuccess && inv.Outcome != OutcomeError {
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidInvocation, inv.Outcome)
	}
	if inv.ID == "" {
		inv.ID = uuid.Must(uuid.NewV7()).String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.StartedAt.IsZero() {
		inv.StartedAt = inv.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operation_invocation (
			id, workspace_id, actor_id, operation, correlation_id,
			outcome, error_message, duration_ms, started_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.WorkspaceID, inv.ActorID, inv.Operation, inv.CorrelationID,
		string(inv.Outcome), inv.ErrorMessage, inv.DurationMs,
		inv.StartedAt.UTC().Format(timeLayout), inv.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record invocation: %w", err)
	}
	return nil
}

// Page bounds for List.
const (
	DefaultListLimit = 25
	MaxListLimit     = 100
)

// List returns invocations of a workspace newest first, plus the total count.
// A non-positive limit falls back to DefaultListLimit and limits above
// MaxListLimit are capped. A negative offset is treated as zero.
func (s *AuditService) List(ctx context.Context, workspaceID string, limit, offset int) ([]*Invocation, int, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, actor_id, operation, correlation_id,
		       outcome, error_message, duration_ms, started_at, created_at
		FROM operation_invocation
		WHERE workspace_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, workspaceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	out := make([]*Invocation, 0, limit)
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invocation: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list invocations: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM operation_invocation WHERE workspace_id = ?`, workspaceID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invocations: %w", err)
	}
	return out, total, nil
}

// Start records every operation.completed event from events until ctx is
// done or events is closed. Failed writes are logged and skipped.
func (s *AuditService) Start(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			s.handle(ctx, evt)
		}
	}
}

func (s *AuditService) handle(ctx context.Context, evt eventbus.Event) {
	completed, ok := evt.Payload.(operation.Completed)
	if !ok {
		s.logger.Warn("audit: unexpected event payload", zap.String("topic", evt.Topic))
		return
	}
	if err := s.Record(ctx, FromCompleted(completed)); err != nil {
		s.logger.Error("audit: record invocation failed",
			zap.String("operation", completed.Operation),
			zap.String("correlation_id", completed.CorrelationID),
			zap.Error(err))
	}
}

func scanInvocation(rows *sql.Rows) (*Invocation, error) {
	var (
		inv                  Invocation
		outcome              string
		errorMessage         sql.NullString
		startedAt, createdAt string
	)
	if err := rows.Scan(&inv.ID, &inv.WorkspaceID, &inv.ActorID, &inv.Operation, &inv.CorrelationID,
		&outcome, &errorMessage, &inv.DurationMs, &startedAt, &createdAt); err != nil {
		return nil, err
	}
	inv.Outcome = Outcome(outcome)
	if errorMessage.Valid {
		msg := errorMessage.String
		inv.ErrorMessage = &msg
	}
	inv.StartedAt, _ = time.Parse(timeLayout, startedAt)
	inv.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &inv, nil
}
