package toolbox

import (
	"context"
	"fmt"
	"time"
)

var gitOperations = map[string]bool{
	"init":     true,
	"status":   true,
	"add":      true,
	"commit":   true,
	"push":     true,
	"pull":     true,
	"clone":    true,
	"branch":   true,
	"checkout": true,
	"log":      true,
	"diff":     true,
}

const gitTimeout = 120 * time.Second

func (e *Executor) gitOperation(ctx context.Context, args map[string]any) (string, error) {
	operation, err := requiredString(args, "operation")
	if err != nil {
		return "", err
	}
	if !gitOperations[operation] {
		return "", fmt.Errorf("unsupported git operation %q", operation)
	}
	extra, _ := stringSliceArg(args, "args")

	argv := append([]string{operation}, extra...)
	out, err := e.runCommand(ctx, gitTimeout, "git", argv...)
	if err != nil {
		return "", err
	}
	return out, nil
}
