package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	activityTypeTask      = "task"
	activityStatusPending = "pending"
)

// Activity is a task, call, email or meeting attached to a CRM entity.
type Activity struct {
	ID           string     `json:"id"`
	WorkspaceID  string     `json:"workspaceId"`
	ActivityType string     `json:"activityType"`
	EntityType   string     `json:"entityType"`
	EntityID     string     `json:"entityId"`
	OwnerID      string     `json:"ownerId"`
	Subject      string     `json:"subject"`
	Status       string     `json:"status"`
	DueAt        *time.Time `json:"dueAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// CreateTaskInput defines the fields of a new pending task.
// DueDate is optional RFC3339 or YYYY-MM-DD.
type CreateTaskInput struct {
	WorkspaceID string
	OwnerID     string
	Title       string
	EntityType  string
	EntityID    string
	DueDate     string
}

// ActivityService provides activity operations scoped to a workspace.
type ActivityService struct {
	db *sql.DB
}

// NewActivityService creates an ActivityService instance.
func NewActivityService(db *sql.DB) *ActivityService {
	return &ActivityService{db: db}
}

// CreateTask inserts a pending task activity.
func (s *ActivityService) CreateTask(ctx context.Context, input CreateTaskInput) (*Activity, error) {
	if input.WorkspaceID == "" || input.OwnerID == "" || strings.TrimSpace(input.Title) == "" ||
		input.EntityType == "" || input.EntityID == "" {
		return nil, fmt.Errorf("%w: workspace, owner, title, entity type and entity id are required", ErrInvalidInput)
	}

	dueAt, err := parseDueDate(input.DueDate)
	if err != nil {
		return nil, err
	}

	id := newID()
	now := nowRFC3339()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity (
			id, workspace_id, activity_type, entity_type, entity_id,
			owner_id, subject, status, due_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.WorkspaceID, activityTypeTask, input.EntityType, input.EntityID,
		input.OwnerID, strings.TrimSpace(input.Title), activityStatusPending, dueAt, now, now)
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}

	return s.Get(ctx, input.WorkspaceID, id)
}

// Get retrieves an activity by ID within the workspace.
func (s *ActivityService) Get(ctx context.Context, workspaceID, activityID string) (*Activity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, activity_type, entity_type, entity_id,
		       owner_id, subject, status, due_at, created_at, updated_at
		FROM activity
		WHERE workspace_id = ? AND id = ?
	`, workspaceID, activityID)

	var (
		a                    Activity
		dueAt                sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&a.ID, &a.WorkspaceID, &a.ActivityType, &a.EntityType, &a.EntityID,
		&a.OwnerID, &a.Subject, &a.Status, &dueAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, activityID)
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}

	if dueAt.Valid {
		t := parseRFC3339Time(dueAt.String)
		a.DueAt = &t
	}
	a.CreatedAt = parseRFC3339Time(createdAt)
	a.UpdatedAt = parseRFC3339Time(updatedAt)
	return &a, nil
}

// parseDueDate normalizes an optional due date to RFC3339 (UTC).
func parseDueDate(value string) (sql.NullString, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return nullString(t.UTC().Format(time.RFC3339)), nil
		}
	}
	return sql.NullString{}, fmt.Errorf("%w: due date %q must be RFC3339 or YYYY-MM-DD", ErrInvalidInput, value)
}
