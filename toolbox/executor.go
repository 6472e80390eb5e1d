// Package toolbox executes the agent's tool catalog against one project's
// working directory. Every filesystem effect is confined to the project root,
// and every failure is converted into an error-flagged text result so the
// agent loop can treat all tool calls uniformly.
package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ferrywell/devpad/llm"
)

// DefaultCommandTimeout bounds foreground shell commands that do not supply
// their own timeout.
const DefaultCommandTimeout = 30 * time.Second

// Result is the outcome of one tool execution. IsError marks failures that
// the model should see and react to; Run never returns a Go error.
type Result struct {
	Content string
	IsError bool
}

func errorResult(format string, a ...any) Result {
	return Result{Content: fmt.Sprintf(format, a...), IsError: true}
}

// Executor runs catalog tools against a single project root. It owns the
// environment-variable overlay and the background-process table; no state is
// shared between executors.
type Executor struct {
	root           string
	defaultTimeout time.Duration
	httpc          *http.Client
	searchURL      string // overrides the search endpoint; used in tests

	env   *envOverlay
	procs *processTable

	tools map[string]toolSpec
}

// Option configures an Executor.
type Option func(*Executor)

// WithCommandTimeout overrides the default foreground command timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(e *Executor) { e.defaultTimeout = d }
}

// WithHTTPClient overrides the HTTP client used by web_search.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.httpc = c }
}

// WithEnv seeds the environment-variable overlay.
func WithEnv(vars map[string]string) Option {
	return func(e *Executor) {
		for k, v := range vars {
			e.env.set(k, v)
		}
	}
}

// NewExecutor creates an Executor rooted at the given project directory. The
// root must exist; it is resolved to an absolute, symlink-free path once so
// confinement checks compare like with like.
func NewExecutor(root string, opts ...Option) (*Executor, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	e := &Executor{
		root:           resolved,
		defaultTimeout: DefaultCommandTimeout,
		httpc:          http.DefaultClient,
		env:            newEnvOverlay(),
		procs:          newProcessTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tools = catalog()
	return e, nil
}

// Root returns the resolved project root.
func (e *Executor) Root() string { return e.root }

// Definitions returns the tool definitions for the whole catalog, sorted by
// name, in the shape the provider adapters send to the model.
func (e *Executor) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(e.tools))
	for _, spec := range e.tools {
		defs = append(defs, spec.def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Run executes one tool call. Unknown tools, malformed arguments, and tool
// failures all come back as error-flagged results; the executor never throws
// across this boundary.
func (e *Executor) Run(ctx context.Context, name string, arguments json.RawMessage) Result {
	spec, ok := e.tools[name]
	if !ok {
		return errorResult("unknown tool %q", name)
	}
	args, err := parseArguments(arguments)
	if err != nil {
		return errorResult("invalid arguments for %s: %v", name, err)
	}

	start := time.Now()
	content, err := spec.handler(e, ctx, args)
	if err != nil {
		slog.Debug("tool_failed", "tool", name, "error", err, "duration", time.Since(start))
		return Result{Content: err.Error(), IsError: true}
	}
	slog.Debug("tool_ok", "tool", name, "duration", time.Since(start))
	return Result{Content: content}
}

// resolve joins a tool-supplied path against the project root and verifies
// the result stays inside it. Symlinks are resolved on the deepest existing
// ancestor so a link pointing outside the root cannot smuggle writes out.
// Called independently by every filesystem-touching handler.
func (e *Executor) resolve(path string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(path))
	if cleaned == "" || cleaned == "." {
		return e.root, nil
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("path %q escapes the project directory", path)
	}

	joined := filepath.Join(e.root, cleaned)

	// Walk up to the deepest ancestor that exists and resolve its symlinks,
	// then re-attach the remaining components.
	ancestor := joined
	var suffix []string
	for {
		if _, err := os.Lstat(ancestor); err == nil {
			break
		}
		suffix = append([]string{filepath.Base(ancestor)}, suffix...)
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	resolvedAncestor, err := filepath.EvalSymlinks(ancestor)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	resolved := filepath.Join(append([]string{resolvedAncestor}, suffix...)...)

	if resolved != e.root && !strings.HasPrefix(resolved, e.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the project directory", path)
	}
	return resolved, nil
}

// toolSpec pairs a tool definition with its handler.
type toolSpec struct {
	def     llm.ToolDefinition
	handler func(e *Executor, ctx context.Context, args map[string]any) (string, error)
}

func parseArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func requiredString(args map[string]any, key string) (string, error) {
	s, ok := stringArg(args, key)
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func boolArg(args map[string]any, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func stringSliceArg(args map[string]any, key string) ([]string, bool) {
	v, ok := args[key]
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		// Models sometimes send a single package as a bare string.
		return []string{list}, true
	default:
		return nil, false
	}
}
