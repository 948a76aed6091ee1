package builtin

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/matiasleandrokruk/crmops/internal/domain/crm"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
)

var taskCreateDefinition = operation.Definition{
	Name:        "task.create",
	Description: "Creates a pending task on a CRM entity. ownerId defaults to the calling user.",
	InputSchema: schema(`{"type":"object","required":["title","entityType","entityId"],"properties":{"ownerId":{"type":"string"},"title":{"type":"string"},"entityType":{"type":"string"},"entityId":{"type":"string"},"dueDate":{"type":"string"}},"additionalProperties":false}`),
}

type taskCreateRequest struct {
	OwnerID    string `json:"ownerId"`
	Title      string `json:"title"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	DueDate    string `json:"dueDate"`
}

type taskCreateResponse struct {
	operation.Response
	TaskID    string     `json:"taskId"`
	DueAt     *time.Time `json:"dueAt"`
	CreatedAt *time.Time `json:"createdAt"`
}

type taskCreate struct {
	tasks TaskStore
}

func (op taskCreate) Handle(ctx context.Context, req taskCreateRequest, res *taskCreateResponse, ec operation.ExecutionContext) (*taskCreateResponse, error) {
	workspaceID, err := workspaceOf(ec)
	if err != nil {
		return nil, err
	}

	task, err := op.tasks.CreateTask(ctx, crm.CreateTaskInput{
		WorkspaceID: workspaceID,
		OwnerID:     firstNonEmpty(req.OwnerID, ec.UserID),
		Title:       req.Title,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create task")
	}

	res.TaskID = task.ID
	res.DueAt = task.DueAt
	res.CreatedAt = &task.CreatedAt
	return res, nil
}
