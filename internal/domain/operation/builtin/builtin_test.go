package builtin

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
	"github.com/matiasleandrokruk/crmops/internal/infra/sqlite"
)

var testEC = operation.ExecutionContext{WorkspaceID: "ws-1", UserID: "user-1"}

func newTestRegistry(t *testing.T) *operation.Registry {
	t.Helper()
	db, err := sqlite.OpenMigrated(sqlite.Memory)
	if err != nil {
		t.Fatalf("sqlite.OpenMigrated failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r := operation.NewRegistry(nil)
	if err := RegisterAll(r, NewStores(db)); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	return r
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("output is not valid JSON: %v (%s)", err, out)
	}
	return m
}

func errorMessage(m map[string]any) string {
	s, _ := m["errorMessage"].(string)
	return s
}

func TestRegisterAll_DefinesBuiltins(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	var names []string
	for _, def := range r.Definitions() {
		names = append(names, def.Name)
		if def.Description == "" {
			t.Fatalf("operation %s has no description", def.Name)
		}
	}
	if got, want := strings.Join(names, ","), "account.create,account.get,math.double,task.create"; got != want {
		t.Fatalf("definitions = %s; want %s", got, want)
	}

	if err := RegisterAll(r, Stores{}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestMathDouble(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	out := r.Execute(context.Background(), "math.double", `{"value":2}`, operation.ExecutionContext{})
	if want := `{"success":true,"errorMessage":null,"result":4}`; out != want {
		t.Fatalf("Execute() = %s; want %s", out, want)
	}

	out = r.Execute(context.Background(), "math.double", `{"value":"two"}`, operation.ExecutionContext{})
	if m := decode(t, out); m["success"] != false || !strings.HasPrefix(errorMessage(m), "deserialize request:") {
		t.Fatalf("expected deserialization failure, got %s", out)
	}
}

func TestMathDouble_RejectsOverflow(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	for _, input := range []string{`{"value":4611686018427387904}`, `{"value":-4611686018427387905}`} {
		m := decode(t, r.Execute(context.Background(), "math.double", input, operation.ExecutionContext{}))
		if m["success"] != false || !strings.HasPrefix(errorMessage(m), errValueOutOfRange.Error()) {
			t.Fatalf("input %s: expected overflow failure, got %v", input, m)
		}
	}

	out := r.Execute(context.Background(), "math.double", `{"value":4611686018427387903}`, operation.ExecutionContext{})
	if want := `{"success":true,"errorMessage":null,"result":9223372036854775806}`; out != want {
		t.Fatalf("Execute() = %s; want %s", out, want)
	}
}

func TestAccountCreateThenGet(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	created := decode(t, r.Execute(ctx, "account.create", `{"name":"Acme","domain":"acme.example"}`, testEC))
	if created["success"] != true {
		t.Fatalf("account.create failed: %v", created)
	}
	accountID, _ := created["accountId"].(string)
	if accountID == "" || created["createdAt"] == nil {
		t.Fatalf("unexpected account.create payload %v", created)
	}

	got := decode(t, r.Execute(ctx, "account.get", `{"accountId":"`+accountID+`"}`, testEC))
	if got["success"] != true {
		t.Fatalf("account.get failed: %v", got)
	}
	account, _ := got["account"].(map[string]any)
	if account["id"] != accountID || account["name"] != "Acme" || account["ownerId"] != "user-1" {
		t.Fatalf("unexpected account %v", account)
	}
}

func TestAccountGet_Failures(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	t.Run("not found carries cause", func(t *testing.T) {
		t.Parallel()
		m := decode(t, r.Execute(ctx, "account.get", `{"accountId":"missing"}`, testEC))
		msg := errorMessage(m)
		if m["success"] != false || m["account"] != nil {
			t.Fatalf("expected failure without payload, got %v", m)
		}
		if !strings.HasPrefix(msg, "load account: account not found: missing\n") {
			t.Fatalf("unexpected errorMessage %q", msg)
		}
		if !strings.Contains(msg, "\naccount not found: missing\n") {
			t.Fatalf("expected cause line, got %q", msg)
		}
	})

	t.Run("blank id fails validation", func(t *testing.T) {
		t.Parallel()
		m := decode(t, r.Execute(ctx, "account.get", `{"accountId":"  "}`, testEC))
		if !strings.HasPrefix(errorMessage(m), "validate request: accountId is required\n") {
			t.Fatalf("unexpected errorMessage %q", errorMessage(m))
		}
	})

	t.Run("missing workspace", func(t *testing.T) {
		t.Parallel()
		m := decode(t, r.Execute(ctx, "account.get", `{"accountId":"a"}`, operation.ExecutionContext{}))
		if !strings.HasPrefix(errorMessage(m), "workspace is required in the execution context\n") {
			t.Fatalf("unexpected errorMessage %q", errorMessage(m))
		}
	})
}

func TestAccountCreate_AnonymousCallerNeedsOwner(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ec := operation.ExecutionContext{WorkspaceID: "ws-1"}

	m := decode(t, r.Execute(context.Background(), "account.create", `{"name":"Acme"}`, ec))
	if m["success"] != false || !strings.HasPrefix(errorMessage(m), "ownerId is required") {
		t.Fatalf("expected owner failure, got %v", m)
	}

	m = decode(t, r.Execute(context.Background(), "account.create", `{"name":"Acme","ownerId":"user-9"}`, ec))
	if m["success"] != true {
		t.Fatalf("expected success with explicit owner, got %v", m)
	}
}

func TestTaskCreate(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	m := decode(t, r.Execute(ctx, "task.create",
		`{"title":"Call back","entityType":"account","entityId":"acc-1","dueDate":"2026-11-02"}`, testEC))
	if m["success"] != true {
		t.Fatalf("task.create failed: %v", m)
	}
	if id, _ := m["taskId"].(string); id == "" {
		t.Fatalf("expected taskId, got %v", m)
	}
	if due, _ := m["dueAt"].(string); !strings.HasPrefix(due, "2026-11-02") {
		t.Fatalf("unexpected dueAt %v", m["dueAt"])
	}

	m = decode(t, r.Execute(ctx, "task.create",
		`{"title":"Call back","entityType":"account","entityId":"acc-1","dueDate":"next week"}`, testEC))
	if m["success"] != false || !strings.HasPrefix(errorMessage(m), "create task:") {
		t.Fatalf("expected invalid due date failure, got %v", m)
	}

	m = decode(t, r.Execute(ctx, "task.create", `{"title":"x"}`, testEC))
	if !strings.Contains(errorMessage(m), `missing required field "entityType"`) {
		t.Fatalf("expected schema failure, got %v", m)
	}
}
