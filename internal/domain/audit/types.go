package audit

import (
	"time"

	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
)

// Outcome represents the result of an audited invocation
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Invocation is a single operation_invocation row.
// Rows are immutable once recorded.
type Invocation struct {
	ID            string    `json:"id"`
	WorkspaceID   string    `json:"workspaceId"`
	ActorID       string    `json:"actorId"`
	Operation     string    `json:"operation"`
	CorrelationID string    `json:"correlationId"`
	Outcome       Outcome   `json:"outcome"`
	ErrorMessage  *string   `json:"errorMessage,omitempty"`
	DurationMs    int64     `json:"durationMs"`
	StartedAt     time.Time `json:"startedAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// FromCompleted maps a registry completion event to an invocation row.
func FromCompleted(c operation.Completed) *Invocation {
	inv := &Invocation{
		WorkspaceID:   c.WorkspaceID,
		ActorID:       c.UserID,
		Operation:     c.Operation,
		CorrelationID: c.CorrelationID,
		Outcome:       OutcomeSuccess,
		DurationMs:    c.Duration.Milliseconds(),
		StartedAt:     c.StartedAt,
	}
	if !c.Success {
		inv.Outcome = OutcomeError
		msg := c.ErrorMessage
		inv.ErrorMessage = &msg
	}
	return inv
}
