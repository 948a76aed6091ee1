package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgauth "github.com/matiasleandrokruk/crmops/pkg/auth"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// runCLI runs crmops against a database in dbDir with quiet logging.
func runCLI(t *testing.T, dbDir, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--db", filepath.Join(dbDir, "crmops.db"), "--log-level", "error"}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	res := runCLI(t, t.TempDir(), "", "version")
	if res.code != 0 || !strings.Contains(res.stdout, "crmops version") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRun_UnknownCommand_Returns1(t *testing.T) {
	t.Parallel()

	res := runCLI(t, t.TempDir(), "", "frobnicate")
	if res.code != 1 || !strings.Contains(res.stderr, "unknown command") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRun_Exec_PrintsEnvelope(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	res := runCLI(t, dir, "", "exec", "math.double", "--input", `{"value":2}`)
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", res.code, res.stderr)
	}
	if want := `{"success":true,"errorMessage":null,"result":4}` + "\n"; res.stdout != want {
		t.Fatalf("stdout = %q; want %q", res.stdout, want)
	}

	res = runCLI(t, dir, `{"value":5}`+"\n", "exec", "math.double")
	if !strings.Contains(res.stdout, `"result":10`) {
		t.Fatalf("expected stdin input to be used, got %q", res.stdout)
	}
}

func TestRun_Exec_Strict(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	res := runCLI(t, dir, "", "exec", "math.double", "--input", "not-json")
	if res.code != 0 || !strings.Contains(res.stdout, `"success":false`) {
		t.Fatalf("without --strict a failed operation still exits 0, got %+v", res)
	}

	res = runCLI(t, dir, "", "exec", "math.double", "--input", "not-json", "--strict")
	if res.code != 1 {
		t.Fatalf("expected exit code 1 with --strict, got %d", res.code)
	}
	if !strings.Contains(res.stdout, `"success":false`) || res.stderr != "" {
		t.Fatalf("expected only the envelope to be printed, got %+v", res)
	}
}

func TestRun_ExecThenInvocations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	create := runCLI(t, dir, "", "exec", "account.create", "--workspace", "ws-9", "--user", "user-1", "--input", `{"name":"Acme"}`)
	var env map[string]any
	if err := json.Unmarshal([]byte(create.stdout), &env); err != nil || env["success"] != true {
		t.Fatalf("account.create failed: %+v", create)
	}

	get := runCLI(t, dir, "", "exec", "account.get", "--workspace", "ws-9", "--input", `{"accountId":"`+env["accountId"].(string)+`"}`)
	if !strings.Contains(get.stdout, `"name":"Acme"`) {
		t.Fatalf("expected account to persist across runs, got %q", get.stdout)
	}

	res := runCLI(t, dir, "", "invocations", "--workspace", "ws-9")
	var page struct {
		Data []struct {
			Operation string `json:"operation"`
			ActorID   string `json:"actorId"`
		} `json:"data"`
		Meta map[string]int `json:"meta"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &page); err != nil {
		t.Fatalf("invocations output is not JSON: %v (%q)", err, res.stdout)
	}
	if page.Meta["total"] != 2 || page.Data[0].Operation != "account.get" || page.Data[1].ActorID != "user-1" {
		t.Fatalf("unexpected invocations %+v", page)
	}
}

func TestRun_Invocations_RejectsBadPaging(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"--limit", "-1"}, {"--limit", "0"}, {"--limit", "101"}, {"--offset", "-2"}} {
		res := runCLI(t, t.TempDir(), "", append([]string{"invocations"}, args...)...)
		if res.code == 0 || !strings.Contains(res.stderr, "--limit must be within 1..100") {
			t.Fatalf("args %v: unexpected result %+v", args, res)
		}
	}
}

func TestRun_Ops(t *testing.T) {
	t.Parallel()

	res := runCLI(t, t.TempDir(), "", "ops")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", res.code, res.stderr)
	}
	for _, want := range []string{"NAME", "account.create", "account.get", "math.double", "task.create"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("ops output missing %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(t, t.TempDir(), "", "ops", "--json")
	var defs []map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &defs); err != nil || len(defs) != 4 {
		t.Fatalf("unexpected --json output %q (%v)", res.stdout, err)
	}
}

func TestRun_Migrate(t *testing.T) {
	t.Parallel()

	res := runCLI(t, t.TempDir(), "", "migrate")
	if res.code != 0 || !strings.Contains(res.stdout, "migration version 2") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRun_Token(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-32-chars-min!!!")

	res := runCLI(t, t.TempDir(), "", "token", "--user", "user-1", "--workspace", "ws-1")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", res.code, res.stderr)
	}

	signer, err := pkgauth.NewSigner("test-secret-key-32-chars-min!!!", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	claims, err := signer.Parse(strings.TrimSpace(res.stdout))
	if err != nil {
		t.Fatalf("minted token does not parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.WorkspaceID != "ws-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRun_Token_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	res := runCLI(t, t.TempDir(), "", "token", "--user", "user-1")
	if res.code != 1 || !strings.Contains(res.stderr, "JWT_SECRET") {
		t.Fatalf("unexpected result %+v", res)
	}
}
