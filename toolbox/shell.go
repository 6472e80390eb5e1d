package toolbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"mvdan.cc/sh/v3/syntax"
)

// maxCommandOutput caps combined stdout+stderr capture. A command that
// produces more still succeeds; the remainder is discarded.
const maxCommandOutput = 10 * 1024 * 1024

const packageInstallTimeout = 120 * time.Second

// errCommandTimeout distinguishes a timed-out command from one that exited
// non-zero on its own.
type timeoutError struct {
	command string
	after   time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s: %s", e.after, e.command)
}

// envOverlay holds session-scoped environment variables layered over the
// host environment.
type envOverlay struct {
	mu   sync.RWMutex
	vars map[string]string
}

func newEnvOverlay() *envOverlay {
	return &envOverlay{vars: make(map[string]string)}
}

func (o *envOverlay) set(key, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.vars[key] = value
}

// merged returns the host environment with overlay entries appended last, so
// they win on duplicate keys.
func (o *envOverlay) merged() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	env := os.Environ()
	for k, v := range o.vars {
		env = append(env, k+"="+v)
	}
	return env
}

// boundedBuffer keeps at most max bytes and records whether anything was
// dropped.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.max - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf.String()
	if b.truncated {
		out += "\n[output truncated at 10 MB]"
	}
	return out
}

func shellInvocation(command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd.exe", "/c", command)
	}
	return exec.Command("/bin/sh", "-c", command)
}

// validateShellSyntax rejects commands that do not parse as POSIX shell, so
// the model gets a clear parse error instead of a confusing exit status.
func validateShellSyntax(command string) error {
	parser := syntax.NewParser()
	if _, err := parser.Parse(strings.NewReader(command), ""); err != nil {
		return fmt.Errorf("command is not valid shell syntax: %v", err)
	}
	return nil
}

// runShell runs a shell command in the project root and returns its combined
// output. The whole process group is killed on timeout or context
// cancellation.
func (e *Executor) runShell(ctx context.Context, command string, timeout time.Duration) (string, error) {
	cmd := shellInvocation(command)
	return e.runBounded(ctx, cmd, command, timeout)
}

// runCommand runs an argv-style command, bypassing the shell.
func (e *Executor) runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	return e.runBounded(ctx, cmd, name+" "+strings.Join(args, " "), timeout)
}

func (e *Executor) runBounded(ctx context.Context, cmd *exec.Cmd, display string, timeout time.Duration) (string, error) {
	output := &boundedBuffer{max: maxCommandOutput}
	cmd.Dir = e.root
	cmd.Env = e.env.merged()
	cmd.Stdout = output
	cmd.Stderr = output
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			out := output.String()
			if strings.TrimSpace(out) == "" {
				return "", fmt.Errorf("command failed: %v", err)
			}
			return "", fmt.Errorf("command failed: %v\n%s", err, out)
		}
		out := output.String()
		if strings.TrimSpace(out) == "" {
			out = "(no output)"
		}
		return out, nil
	case <-timer.C:
		killProcessGroup(cmd)
		<-done
		return "", &timeoutError{command: display, after: timeout}
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return "", fmt.Errorf("command cancelled: %w", ctx.Err())
	}
}

func (e *Executor) executeShell(ctx context.Context, args map[string]any) (string, error) {
	command, err := requiredString(args, "command")
	if err != nil {
		return "", err
	}
	if err := validateShellSyntax(command); err != nil {
		return "", err
	}

	if background, _ := boolArg(args, "background"); background {
		handle, err := e.procs.spawn(e, command)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Started background process %s: %s", handle, command), nil
	}

	timeout := e.defaultTimeout
	if ms, ok := intArg(args, "timeout"); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	return e.runShell(ctx, command, timeout)
}
