package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matiasleandrokruk/crmops/internal/domain/audit"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation/builtin"
	"github.com/matiasleandrokruk/crmops/internal/infra/eventbus"
	"github.com/matiasleandrokruk/crmops/internal/infra/logger"
	"github.com/matiasleandrokruk/crmops/internal/infra/sqlite"
	pkgauth "github.com/matiasleandrokruk/crmops/pkg/auth"
)

// mustOpenAPITestDB opens an in-memory SQLite DB with all migrations applied.
func mustOpenAPITestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.OpenMigrated(sqlite.Memory)
	if err != nil {
		t.Fatalf("mustOpenAPITestDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type testApp struct {
	router http.Handler
	signer *pkgauth.Signer
}

// newTestApp wires the router the way `crmops serve` does.
func newTestApp(t *testing.T, withAuth bool) testApp {
	t.Helper()
	db := mustOpenAPITestDB(t)
	lggr := logger.Test(t)

	bus := eventbus.New()
	t.Cleanup(bus.Close)
	auditService := audit.NewAuditService(db, lggr)
	go auditService.Start(context.Background(), bus.Subscribe(operation.TopicCompleted))

	registry := operation.NewRegistry(bus)
	if err := builtin.RegisterAll(registry, builtin.NewStores(db)); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	deps := Deps{Registry: registry, Invocations: auditService, DefaultWorkspaceID: "default", Logger: lggr}
	app := testApp{}
	if withAuth {
		signer, err := pkgauth.NewSigner("test-secret-key-32-chars-min!!!", time.Hour)
		if err != nil {
			t.Fatalf("NewSigner: %v", err)
		}
		deps.Auth = signer
		app.signer = signer
	}
	app.router = NewRouter(deps)
	return app
}

func (a testApp) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// TestNewRouter_HealthEndpoint verifies that NewRouter registers the /health route.
func TestNewRouter_HealthEndpoint(t *testing.T) {
	app := newTestApp(t, true)

	w := app.do(t, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", w.Code)
	}
	if w.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Errorf("expected correlation header on every response")
	}
}

func TestNewRouter_ProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, true)

	for _, path := range []string{"/api/v1/operations", "/api/v1/invocations"} {
		if w := app.do(t, http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: got %d, want 401", path, w.Code)
		}
	}
	if w := app.do(t, http.MethodPost, "/api/v1/operations/math.double", `{"value":2}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("POST without token: got %d, want 401", w.Code)
	}
	if w := app.do(t, http.MethodPost, "/mcp", `{}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("POST /mcp without token: got %d, want 401", w.Code)
	}
}

func TestNewRouter_ExecuteAndAudit(t *testing.T) {
	app := newTestApp(t, true)
	token, err := app.signer.Generate("user-1", "ws-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	w := app.do(t, http.MethodPost, "/api/v1/operations/math.double", `{"value":2}`, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if want := `{"success":true,"errorMessage":null,"result":4}`; w.Body.String() != want {
		t.Fatalf("body = %s; want %s", w.Body.String(), want)
	}

	w = app.do(t, http.MethodPost, "/api/v1/operations/nope", `{}`, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown operation status = %d; want 404", w.Code)
	}

	// The audit subscriber is asynchronous.
	deadline := time.Now().Add(5 * time.Second)
	for {
		w = app.do(t, http.MethodGet, "/api/v1/invocations", "", token)
		var resp struct {
			Data []audit.Invocation `json:"data"`
			Meta map[string]int     `json:"meta"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invocations body is not JSON: %v", err)
		}
		if resp.Meta["total"] == 2 {
			for _, inv := range resp.Data {
				if inv.WorkspaceID != "ws-1" || inv.ActorID != "user-1" || inv.CorrelationID == "" {
					t.Fatalf("unexpected invocation %+v", inv)
				}
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 invocations, got %s", w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewRouter_WithoutAuthUsesDefaultWorkspace(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(t, http.MethodGet, "/api/v1/operations", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"name":"math.double"`) {
		t.Fatalf("expected builtin operations, got %s", w.Body.String())
	}

	w = app.do(t, http.MethodPost, "/api/v1/operations/account.create", `{"name":"Acme","ownerId":"owner-1"}`, "")
	var env map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if env["success"] != true {
		t.Fatalf("expected account.create to succeed in the default workspace, got %s", w.Body.String())
	}
}
