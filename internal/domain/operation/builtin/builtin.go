// Package builtin provides the operations crmops ships with.
package builtin

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/matiasleandrokruk/crmops/internal/domain/crm"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
)

var errWorkspaceRequired = errors.New("workspace is required in the execution context")

// AccountStore is the account persistence used by account operations.
type AccountStore interface {
	Create(ctx context.Context, input crm.CreateAccountInput) (*crm.Account, error)
	Get(ctx context.Context, workspaceID, accountID string) (*crm.Account, error)
}

// TaskStore is the activity persistence used by task operations.
type TaskStore interface {
	CreateTask(ctx context.Context, input crm.CreateTaskInput) (*crm.Activity, error)
}

// Stores groups the CRM collaborators of the built-in operations.
type Stores struct {
	Accounts AccountStore
	Tasks    TaskStore
}

// NewStores returns SQLite-backed stores over db.
func NewStores(db *sql.DB) Stores {
	return Stores{
		Accounts: crm.NewAccountService(db),
		Tasks:    crm.NewActivityService(db),
	}
}

// RegisterAll registers every built-in operation on r.
func RegisterAll(r *operation.Registry, stores Stores) error {
	ops := []struct {
		def  operation.Definition
		exec operation.Executor
	}{
		{def: doubleDefinition, exec: operation.Bind[doubleRequest, doubleResponse](double{})},
		{def: accountGetDefinition, exec: operation.Bind[accountGetRequest, accountGetResponse](accountGet{accounts: stores.Accounts})},
		{def: accountCreateDefinition, exec: operation.Bind[accountCreateRequest, accountCreateResponse](accountCreate{accounts: stores.Accounts})},
		{def: taskCreateDefinition, exec: operation.Bind[taskCreateRequest, taskCreateResponse](taskCreate{tasks: stores.Tasks})},
	}
	for _, op := range ops {
		if err := r.Register(op.def, op.exec); err != nil {
			return errors.Wrapf(err, "register %s", op.def.Name)
		}
	}
	return nil
}

func workspaceOf(ec operation.ExecutionContext) (string, error) {
	if ec.WorkspaceID == "" {
		return "", errWorkspaceRequired
	}
	return ec.WorkspaceID, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func schema(raw string) json.RawMessage {
	return json.RawMessage(raw)
}
