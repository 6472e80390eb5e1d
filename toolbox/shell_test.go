//go:build !windows

package toolbox

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecuteShellCapturesOutput(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "execute_shell", map[string]any{"command": "echo hello; echo oops >&2"})
	if result.IsError {
		t.Fatalf("execute_shell: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello") || !strings.Contains(result.Content, "oops") {
		t.Errorf("combined output = %q", result.Content)
	}
}

func TestExecuteShellRunsInProjectRoot(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "execute_shell", map[string]any{"command": "pwd"})
	if result.IsError {
		t.Fatalf("execute_shell: %s", result.Content)
	}
	if strings.TrimSpace(result.Content) != e.root {
		t.Errorf("pwd = %q, want %q", strings.TrimSpace(result.Content), e.root)
	}
}

func TestExecuteShellTimeoutIsDistinct(t *testing.T) {
	e := newTestExecutor(t)
	start := time.Now()
	result := run(t, e, "execute_shell", map[string]any{"command": "sleep 5", "timeout": 100})
	if !result.IsError {
		t.Fatal("timed-out command should be an error result")
	}
	if !strings.Contains(result.Content, "timed out") {
		t.Errorf("timeout not reported distinctly: %q", result.Content)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v, group kill likely failed", elapsed)
	}
}

func TestExecuteShellNonZeroExit(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "execute_shell", map[string]any{"command": "echo partial; exit 3"})
	if !result.IsError {
		t.Fatal("non-zero exit should be an error result")
	}
	if strings.Contains(result.Content, "timed out") {
		t.Error("plain failure reported as timeout")
	}
	if !strings.Contains(result.Content, "partial") {
		t.Errorf("captured output dropped from failure: %q", result.Content)
	}
}

func TestExecuteShellRejectsBadSyntax(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "execute_shell", map[string]any{"command": "echo 'unterminated"})
	if !result.IsError || !strings.Contains(result.Content, "not valid shell syntax") {
		t.Errorf("result = %+v", result)
	}
}

func TestExecuteShellBackground(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "execute_shell", map[string]any{"command": "sleep 30", "background": true})
	if result.IsError {
		t.Fatalf("background spawn: %s", result.Content)
	}
	if !strings.Contains(result.Content, "proc_") {
		t.Fatalf("no handle in result: %q", result.Content)
	}
	handle := extractHandle(t, result.Content)

	listing := run(t, e, "manage_process", map[string]any{"action": "list"})
	if listing.IsError || !strings.Contains(listing.Content, handle) || !strings.Contains(listing.Content, "running") {
		t.Errorf("listing = %+v", listing)
	}

	killed := run(t, e, "manage_process", map[string]any{"action": "kill", "handle": handle})
	if killed.IsError {
		t.Fatalf("kill: %s", killed.Content)
	}
	listing = run(t, e, "manage_process", map[string]any{"action": "list"})
	if strings.Contains(listing.Content, handle) {
		t.Error("killed process still listed")
	}
}

func TestManageProcessRestart(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "execute_shell", map[string]any{"command": "sleep 30", "background": true})
	handle := extractHandle(t, result.Content)

	restarted := run(t, e, "manage_process", map[string]any{"action": "restart", "handle": handle})
	if restarted.IsError {
		t.Fatalf("restart: %s", restarted.Content)
	}
	newHandle := extractHandle(t, restarted.Content[strings.Index(restarted.Content, " as ")+4:])
	if newHandle == handle {
		t.Error("restart reused the old handle")
	}
	// Old handle is gone, new one works.
	if r := run(t, e, "manage_process", map[string]any{"action": "kill", "handle": handle}); !r.IsError {
		t.Error("old handle survived restart")
	}
	if r := run(t, e, "manage_process", map[string]any{"action": "kill", "handle": newHandle}); r.IsError {
		t.Errorf("kill new handle: %s", r.Content)
	}
}

func TestManageProcessUnknownHandle(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "manage_process", map[string]any{"action": "kill", "handle": "proc_missing"})
	if !result.IsError || !strings.Contains(result.Content, "no background process") {
		t.Errorf("result = %+v", result)
	}
	result = run(t, e, "manage_process", map[string]any{"action": "kill"})
	if !result.IsError {
		t.Error("kill without a handle should fail")
	}
	result = run(t, e, "manage_process", map[string]any{"action": "zap"})
	if !result.IsError {
		t.Error("unknown action should fail")
	}
}

func TestBackgroundProcessCap(t *testing.T) {
	e := newTestExecutor(t)
	table := e.procs
	for i := 0; i < maxBackgroundProcesses; i++ {
		table.mu.Lock()
		table.procs["proc_fake"+string(rune('a'+i%26))+string(rune('a'+i/26))] = &backgroundProcess{}
		table.mu.Unlock()
	}
	_, err := table.spawn(e, "sleep 1")
	if err == nil {
		t.Fatal("spawn above the cap should fail")
	}
	if !strings.Contains(err.Error(), "too many background processes") {
		t.Errorf("error = %v", err)
	}
}

func TestTimeoutErrorType(t *testing.T) {
	e := newTestExecutor(t)
	_, err := e.runShell(t.Context(), "sleep 5", 50*time.Millisecond)
	var te *timeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error = %T (%v), want *timeoutError", err, err)
	}
}

func TestBoundedBufferTruncates(t *testing.T) {
	b := &boundedBuffer{max: 10}
	b.Write([]byte("0123456789abcdef"))
	b.Write([]byte("more"))
	out := b.String()
	if !strings.HasPrefix(out, "0123456789") {
		t.Errorf("buffer = %q", out)
	}
	if !strings.Contains(out, "truncated") {
		t.Error("truncation not reported")
	}
}

func extractHandle(t *testing.T, s string) string {
	t.Helper()
	i := strings.Index(s, "proc_")
	if i < 0 {
		t.Fatalf("no handle in %q", s)
	}
	rest := s[i:]
	if j := strings.IndexAny(rest, " :\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
