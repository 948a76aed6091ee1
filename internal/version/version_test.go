package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	result := String()

	for _, want := range []string{"crmops version", Version, "built " + BuildTime, runtime.Version()} {
		if !strings.Contains(result, want) {
			t.Errorf("String() = %q, should contain %q", result, want)
		}
	}
}

func TestDefaultValues(t *testing.T) {
	if Version != "dev" {
		t.Errorf("Version = %q, want 'dev'", Version)
	}
	if BuildTime != "unknown" {
		t.Errorf("BuildTime = %q, want 'unknown'", BuildTime)
	}
}
