package toolbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenReadFile(t *testing.T) {
	e := newTestExecutor(t)

	result := run(t, e, "write_file", map[string]any{
		"path":    "src/app/main.go",
		"content": "package main\n",
	})
	if result.IsError {
		t.Fatalf("write_file: %s", result.Content)
	}
	if !strings.Contains(result.Content, "13 bytes") {
		t.Errorf("write result = %q, want byte count", result.Content)
	}

	result = run(t, e, "read_file", map[string]any{"path": "src/app/main.go"})
	if result.IsError {
		t.Fatalf("read_file: %s", result.Content)
	}
	if result.Content != "package main\n" {
		t.Errorf("content = %q", result.Content)
	}
}

func TestReadFileRejectsBinary(t *testing.T) {
	e := newTestExecutor(t)
	if err := os.WriteFile(filepath.Join(e.root, "blob.bin"), []byte{0xff, 0xfe, 0x00, 0x80}, 0o644); err != nil {
		t.Fatal(err)
	}
	result := run(t, e, "read_file", map[string]any{"path": "blob.bin"})
	if !result.IsError || !strings.Contains(result.Content, "not valid UTF-8") {
		t.Errorf("result = %+v", result)
	}
}

func TestListDirectory(t *testing.T) {
	e := newTestExecutor(t)

	// An empty directory is a successful, explicit result.
	result := run(t, e, "list_directory", map[string]any{})
	if result.IsError {
		t.Fatalf("list_directory: %s", result.Content)
	}
	if !strings.Contains(result.Content, "empty") {
		t.Errorf("empty listing = %q", result.Content)
	}

	run(t, e, "write_file", map[string]any{"path": "a.txt", "content": "aaa"})
	run(t, e, "write_file", map[string]any{"path": "sub/b.txt", "content": "bb"})

	result = run(t, e, "list_directory", map[string]any{})
	if !strings.Contains(result.Content, "[file] a.txt") || !strings.Contains(result.Content, "[dir]  sub/") {
		t.Errorf("listing = %q", result.Content)
	}
	if strings.Contains(result.Content, "b.txt") {
		t.Error("non-recursive listing descended into subdirectory")
	}

	result = run(t, e, "list_directory", map[string]any{"recursive": true})
	if !strings.Contains(result.Content, "sub/b.txt") {
		t.Errorf("recursive listing = %q", result.Content)
	}

	result = run(t, e, "list_directory", map[string]any{"path": "nope"})
	if !result.IsError {
		t.Error("listing a missing directory should fail")
	}
}

func TestDeleteFileRequiresRecursiveForNonEmptyDir(t *testing.T) {
	e := newTestExecutor(t)
	run(t, e, "write_file", map[string]any{"path": "dir/file.txt", "content": "x"})

	result := run(t, e, "delete_file", map[string]any{"path": "dir"})
	if !result.IsError || !strings.Contains(result.Content, "recursive") {
		t.Errorf("result = %+v", result)
	}

	result = run(t, e, "delete_file", map[string]any{"path": "dir", "recursive": true})
	if result.IsError {
		t.Fatalf("recursive delete: %s", result.Content)
	}
	if _, err := os.Stat(filepath.Join(e.root, "dir")); !os.IsNotExist(err) {
		t.Error("directory still exists")
	}
}

func TestDeleteEmptyDirWithoutFlag(t *testing.T) {
	e := newTestExecutor(t)
	run(t, e, "create_directory", map[string]any{"path": "empty"})
	result := run(t, e, "delete_file", map[string]any{"path": "empty"})
	if result.IsError {
		t.Errorf("deleting an empty directory should not need recursive: %s", result.Content)
	}
}

func TestMoveFileCreatesDestinationParents(t *testing.T) {
	e := newTestExecutor(t)
	run(t, e, "write_file", map[string]any{"path": "old.txt", "content": "data"})

	result := run(t, e, "move_file", map[string]any{"source": "old.txt", "destination": "deep/nested/new.txt"})
	if result.IsError {
		t.Fatalf("move_file: %s", result.Content)
	}
	data, err := os.ReadFile(filepath.Join(e.root, "deep/nested/new.txt"))
	if err != nil || string(data) != "data" {
		t.Errorf("moved file: %s, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(e.root, "old.txt")); !os.IsNotExist(err) {
		t.Error("source still exists")
	}

	result = run(t, e, "move_file", map[string]any{"source": "ghost.txt", "destination": "x.txt"})
	if !result.IsError {
		t.Error("moving a missing source should fail")
	}
}

func TestSetEnvVariableUpsert(t *testing.T) {
	e := newTestExecutor(t)

	result := run(t, e, "set_env_variable", map[string]any{"key": "API_URL", "value": "http://a"})
	if result.IsError {
		t.Fatalf("set_env_variable: %s", result.Content)
	}
	run(t, e, "set_env_variable", map[string]any{"key": "PORT", "value": "3000"})
	// Overwrite replaces the existing line rather than appending a duplicate.
	run(t, e, "set_env_variable", map[string]any{"key": "API_URL", "value": "http://b"})

	data, err := os.ReadFile(filepath.Join(e.root, ".env"))
	if err != nil {
		t.Fatalf("read .env: %v", err)
	}
	content := string(data)
	if strings.Count(content, "API_URL=") != 1 {
		t.Errorf(".env has duplicate keys:\n%s", content)
	}
	if !strings.Contains(content, "API_URL=http://b") || !strings.Contains(content, "PORT=3000") {
		t.Errorf(".env content:\n%s", content)
	}

	// Overlay values reach child commands.
	env := e.env.merged()
	found := false
	for _, entry := range env {
		if entry == "API_URL=http://b" {
			found = true
		}
	}
	if !found {
		t.Error("overlay missing updated value")
	}
}

func TestSetEnvVariableNoPersist(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "set_env_variable", map[string]any{"key": "TOKEN", "value": "s", "persist": false})
	if result.IsError {
		t.Fatalf("set_env_variable: %s", result.Content)
	}
	if _, err := os.Stat(filepath.Join(e.root, ".env")); !os.IsNotExist(err) {
		t.Error(".env written despite persist=false")
	}
}

func TestSetEnvVariableRejectsBadKey(t *testing.T) {
	e := newTestExecutor(t)
	result := run(t, e, "set_env_variable", map[string]any{"key": "BAD=KEY", "value": "x"})
	if !result.IsError {
		t.Error("key containing = should be rejected")
	}
}
