package handlers

import (
	"context"
	"net/http"

	"github.com/matiasleandrokruk/crmops/internal/domain/audit"
)

// InvocationLister reads the invocation audit log. *audit.AuditService satisfies it.
type InvocationLister interface {
	List(ctx context.Context, workspaceID string, limit, offset int) ([]*audit.Invocation, int, error)
}

type InvocationHandler struct {
	lister InvocationLister
}

func NewInvocationHandler(lister InvocationLister) *InvocationHandler {
	return &InvocationHandler{lister: lister}
}

// ListInvocations handles GET /api/v1/invocations?limit&offset.
func (h *InvocationHandler) ListInvocations(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := getWorkspaceID(r.Context())
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing workspace_id in context")
		return
	}

	page := parsePaginationParams(r)
	items, total, err := h.lister.List(r.Context(), workspaceID, page.Limit, page.Offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list invocations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]int{"total": total, "limit": page.Limit, "offset": page.Offset},
	})
}
