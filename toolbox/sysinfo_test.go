package toolbox

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetSystemInfo(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "get_system_info", nil)
	if result.IsError {
		t.Fatalf("get_system_info: %s", result.Content)
	}
	if !strings.Contains(result.Content, "OS: "+runtime.GOOS) {
		t.Errorf("missing OS line: %q", result.Content)
	}
	if !strings.Contains(result.Content, "CPUs:") {
		t.Errorf("missing CPU line: %q", result.Content)
	}
	// Runtime probes are best-effort; the report must not contain error text
	// for absent binaries.
	if strings.Contains(result.Content, "not found") {
		t.Errorf("absent runtimes should be skipped silently: %q", result.Content)
	}
}
