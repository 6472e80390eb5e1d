package toolbox

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// maxBackgroundProcesses caps concurrent detached processes per executor so
// a looping model cannot fork-bomb the host.
const maxBackgroundProcesses = 32

type backgroundProcess struct {
	handle  string
	command string
	cmd     *exec.Cmd
	started time.Time

	mu     sync.Mutex
	exited bool
	exit   error
}

func (p *backgroundProcess) status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exited {
		return "running"
	}
	if p.exit != nil {
		return fmt.Sprintf("exited (%v)", p.exit)
	}
	return "exited (ok)"
}

// processTable tracks detached processes by handle. It is executor-local and
// never persisted.
type processTable struct {
	mu    sync.Mutex
	procs map[string]*backgroundProcess
}

func newProcessTable() *processTable {
	return &processTable{procs: make(map[string]*backgroundProcess)}
}

func (t *processTable) spawn(e *Executor, command string) (string, error) {
	t.mu.Lock()
	if len(t.procs) >= maxBackgroundProcesses {
		t.mu.Unlock()
		return "", fmt.Errorf("too many background processes (%d); kill one with manage_process first", maxBackgroundProcesses)
	}
	t.mu.Unlock()

	cmd := shellInvocation(command)
	cmd.Dir = e.root
	cmd.Env = e.env.merged()
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start background process: %w", err)
	}

	proc := &backgroundProcess{
		handle:  "proc_" + uuid.NewString()[:8],
		command: command,
		cmd:     cmd,
		started: time.Now(),
	}
	t.mu.Lock()
	t.procs[proc.handle] = proc
	t.mu.Unlock()

	go func() {
		err := cmd.Wait()
		proc.mu.Lock()
		proc.exited = true
		proc.exit = err
		proc.mu.Unlock()
	}()
	return proc.handle, nil
}

func (t *processTable) get(handle string) *backgroundProcess {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.procs[handle]
}

func (t *processTable) remove(handle string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, handle)
}

func (t *processTable) list() []*backgroundProcess {
	t.mu.Lock()
	defer t.mu.Unlock()
	procs := make([]*backgroundProcess, 0, len(t.procs))
	for _, p := range t.procs {
		procs = append(procs, p)
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].started.Before(procs[j].started) })
	return procs
}

func (e *Executor) manageProcess(ctx context.Context, args map[string]any) (string, error) {
	action, err := requiredString(args, "action")
	if err != nil {
		return "", err
	}

	switch action {
	case "list":
		procs := e.procs.list()
		if len(procs) == 0 {
			return "No background processes running", nil
		}
		var sb strings.Builder
		for _, p := range procs {
			fmt.Fprintf(&sb, "%s  pid %d  %s  started %s  %s\n",
				p.handle, p.cmd.Process.Pid, p.status(),
				humanize.Time(p.started), p.command)
		}
		return strings.TrimRight(sb.String(), "\n"), nil

	case "kill":
		handle, err := requiredString(args, "handle")
		if err != nil {
			return "", err
		}
		proc := e.procs.get(handle)
		if proc == nil {
			return "", fmt.Errorf("no background process with handle %s", handle)
		}
		killProcessGroup(proc.cmd)
		e.procs.remove(handle)
		return fmt.Sprintf("Killed %s (%s)", handle, proc.command), nil

	case "restart":
		handle, err := requiredString(args, "handle")
		if err != nil {
			return "", err
		}
		proc := e.procs.get(handle)
		if proc == nil {
			return "", fmt.Errorf("no background process with handle %s", handle)
		}
		killProcessGroup(proc.cmd)
		e.procs.remove(handle)
		newHandle, err := e.procs.spawn(e, proc.command)
		if err != nil {
			return "", fmt.Errorf("restart failed: %w", err)
		}
		return fmt.Sprintf("Restarted %s as %s (%s)", handle, newHandle, proc.command), nil

	default:
		return "", fmt.Errorf("unknown action %q; expected list, kill, or restart", action)
	}
}
