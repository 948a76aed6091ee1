package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/crmops/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
	"github.com/matiasleandrokruk/crmops/internal/infra/logger"
)

// maxInputBytes bounds the request body handed to an executor.
const maxInputBytes = 1 << 20

// OperationRunner is the registry surface the handler needs.
// *operation.Registry satisfies it.
type OperationRunner interface {
	Definitions() []operation.Definition
	Definition(name string) (operation.Definition, error)
	Execute(ctx context.Context, name, input string, ec operation.ExecutionContext) string
}

type OperationHandler struct {
	runner OperationRunner
	logger *zap.Logger
}

// NewOperationHandler returns the handler of /api/v1/operations. logger may be nil.
func NewOperationHandler(runner OperationRunner, lggr *zap.Logger) *OperationHandler {
	if lggr == nil {
		lggr = zap.NewNop()
	}
	return &OperationHandler{runner: runner, logger: lggr}
}

type operationResponse struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListOperations handles GET /api/v1/operations.
func (h *OperationHandler) ListOperations(w http.ResponseWriter, _ *http.Request) {
	defs := h.runner.Definitions()
	out := make([]operationResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, operationResponse{Name: def.Name, Description: def.Description, InputSchema: def.InputSchema})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "meta": map[string]int{"total": len(out)}})
}

// ExecuteOperation handles POST /api/v1/operations/{name}. The raw body is
// the operation input and the envelope is written back as is: 200 for any
// executed operation, 404 for an unknown name.
func (h *OperationHandler) ExecuteOperation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ec := h.executionContext(r, name)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInputBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeEnvelope(w, status, operation.FailureEnvelope(ec, err))
		return
	}

	status := http.StatusOK
	if _, err := h.runner.Definition(name); err != nil {
		status = http.StatusNotFound
	}
	writeEnvelope(w, status, h.runner.Execute(r.Context(), name, string(body), ec))
}

func (h *OperationHandler) executionContext(r *http.Request, name string) operation.ExecutionContext {
	ctx := r.Context()
	ec := operation.ExecutionContext{
		WorkspaceID:   ctxkeys.String(ctx, ctxkeys.WorkspaceID),
		UserID:        ctxkeys.String(ctx, ctxkeys.UserID),
		CorrelationID: ctxkeys.String(ctx, ctxkeys.CorrelationID),
	}
	ec.Tracer = logger.Tracer(h.logger,
		zap.String("operation", name),
		zap.String("workspace_id", ec.WorkspaceID),
		zap.String("correlation_id", ec.CorrelationID))
	return ec
}
