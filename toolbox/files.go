package toolbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

func (e *Executor) readFile(ctx context.Context, args map[string]any) (string, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return "", err
	}
	resolved, err := e.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file %s does not exist", path)
		}
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file %s is not valid UTF-8 text", path)
	}
	return string(data), nil
}

func (e *Executor) writeFile(ctx context.Context, args map[string]any) (string, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return "", err
	}
	content, ok := stringArg(args, "content")
	if !ok {
		return "", fmt.Errorf("content is required")
	}
	resolved, err := e.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

func (e *Executor) listDirectory(ctx context.Context, args map[string]any) (string, error) {
	path, _ := stringArg(args, "path")
	recursive, _ := boolArg(args, "recursive")

	resolved, err := e.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory %s does not exist", displayPath(path))
		}
		return "", err
	}

	var lines []string

	// Iterative worklist so a deep or cyclic-looking tree cannot blow the
	// stack; entries within a directory are listed sorted.
	type workItem struct {
		abs string
		rel string
	}
	work := []workItem{{abs: resolved, rel: ""}}
	for len(work) > 0 {
		item := work[0]
		work = work[1:]

		entries, err := os.ReadDir(item.abs)
		if err != nil {
			lines = append(lines, fmt.Sprintf("[error] %s: %v", item.rel, err))
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			rel := entry.Name()
			if item.rel != "" {
				rel = item.rel + "/" + entry.Name()
			}
			if entry.IsDir() {
				lines = append(lines, fmt.Sprintf("[dir]  %s/", rel))
				if recursive {
					work = append(work, workItem{abs: filepath.Join(item.abs, entry.Name()), rel: rel})
				}
				continue
			}
			size := "?"
			if info, err := entry.Info(); err == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			lines = append(lines, fmt.Sprintf("[file] %s (%s)", rel, size))
		}
	}

	if len(lines) == 0 {
		return fmt.Sprintf("%s is empty", displayPath(path)), nil
	}
	return strings.Join(lines, "\n"), nil
}

func displayPath(path string) string {
	if strings.TrimSpace(path) == "" || path == "." {
		return "project root"
	}
	return path
}

func (e *Executor) createDirectory(ctx context.Context, args map[string]any) (string, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return "", err
	}
	resolved, err := e.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created directory %s", path), nil
}

func (e *Executor) deleteFile(ctx context.Context, args map[string]any) (string, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return "", err
	}
	recursive, _ := boolArg(args, "recursive")

	resolved, err := e.resolve(path)
	if err != nil {
		return "", err
	}
	if resolved == e.root {
		return "", fmt.Errorf("refusing to delete the project root")
	}
	info, err := os.Lstat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s does not exist", path)
		}
		return "", err
	}

	if info.IsDir() && !recursive {
		entries, err := os.ReadDir(resolved)
		if err != nil {
			return "", err
		}
		if len(entries) > 0 {
			return "", fmt.Errorf("directory %s is not empty; pass recursive=true to delete it", path)
		}
		if err := os.Remove(resolved); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted directory %s", path), nil
	}

	if info.IsDir() {
		if err := os.RemoveAll(resolved); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted directory %s and its contents", path), nil
	}
	if err := os.Remove(resolved); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %s", path), nil
}

func (e *Executor) moveFile(ctx context.Context, args map[string]any) (string, error) {
	source, err := requiredString(args, "source")
	if err != nil {
		return "", err
	}
	destination, err := requiredString(args, "destination")
	if err != nil {
		return "", err
	}

	src, err := e.resolve(source)
	if err != nil {
		return "", err
	}
	dst, err := e.resolve(destination)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(src); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s does not exist", source)
		}
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.Rename(src, dst); err != nil {
		return "", err
	}
	return fmt.Sprintf("Moved %s to %s", source, destination), nil
}
