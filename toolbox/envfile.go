package toolbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const envFileName = ".env"

func (e *Executor) setEnvVariable(ctx context.Context, args map[string]any) (string, error) {
	key, err := requiredString(args, "key")
	if err != nil {
		return "", err
	}
	value, ok := stringArg(args, "value")
	if !ok {
		return "", fmt.Errorf("value is required")
	}
	if strings.ContainsAny(key, "=\n") || strings.TrimSpace(key) != key || key == "" {
		return "", fmt.Errorf("invalid environment variable name %q", key)
	}

	persist := true
	if p, ok := boolArg(args, "persist"); ok {
		persist = p
	}

	e.env.set(key, value)
	if !persist {
		return fmt.Sprintf("Set %s for subsequent commands", key), nil
	}

	if err := upsertEnvFile(filepath.Join(e.root, envFileName), key, value); err != nil {
		return "", err
	}
	return fmt.Sprintf("Set %s and persisted it to %s", key, envFileName), nil
}

// upsertEnvFile rewrites a KEY=value line in place, preserving unrelated
// lines and appending when the key is new.
func upsertEnvFile(path, key, value string) error {
	var lines []string
	if data, err := os.ReadFile(path); err == nil {
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if len(lines) == 1 && lines[0] == "" {
			lines = nil
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	entry := key + "=" + value
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(line, key+"=") {
			lines[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}
