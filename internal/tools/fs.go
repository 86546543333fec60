package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxReadChars caps fs.read output.
const DefaultMaxReadChars = 10000

// readTool implements fs.read.
type readTool struct {
	maxChars int
}

func (t *readTool) Name() string { return "fs.read" }

func (t *readTool) Description() string {
	return "Read a text file inside the workspace (read-only)."
}

func (t *readTool) Class() Class { return ClassFilesystem }

func (t *readTool) PathArgs() []string { return []string{"path"} }

func (t *readTool) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"path": prop("string", "Workspace-relative path of the file to read"),
	}, "path")
}

func (t *readTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist")
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content, truncated := headRunes(string(data), t.maxChars)
	return map[string]interface{}{
		"path":      path,
		"content":   content,
		"truncated": truncated,
	}, nil
}

// writeTool implements fs.write. Existing files are only replaced when the
// call sets overwrite.
type writeTool struct{}

func (t *writeTool) Name() string { return "fs.write" }

func (t *writeTool) Description() string {
	return "Write a text file inside the workspace. Creates parent directories; refuses to replace an existing file unless overwrite is true."
}

func (t *writeTool) Class() Class { return ClassFilesystem }

func (t *writeTool) PathArgs() []string { return []string{"path"} }

func (t *writeTool) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"path":      prop("string", "Workspace-relative path of the file to write"),
		"content":   prop("string", "File content"),
		"overwrite": prop("boolean", "Replace the file if it already exists"),
	}, "path", "content")
}

func (t *writeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	content := optionalString(args, "content")
	overwrite := boolArg(args, "overwrite")

	if _, err := os.Stat(path); err == nil && !overwrite {
		return nil, fmt.Errorf("file already exists; set overwrite=true to replace it")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return map[string]interface{}{
		"path":  path,
		"bytes": len(content),
	}, nil
}
