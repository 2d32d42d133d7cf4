package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/invoke"
)

// FileOption configures the file tools.
type FileOption func(*fileConfig)

type fileConfig struct {
	basePath          string
	allowedExtensions []string
	maxFileSize       int64
}

// WithBasePath restricts file operations to a directory. All paths resolve
// relative to it and may not escape it.
func WithBasePath(path string) FileOption {
	return func(c *fileConfig) {
		c.basePath = path
	}
}

// WithAllowedExtensions restricts file operations to the given extensions.
func WithAllowedExtensions(exts ...string) FileOption {
	return func(c *fileConfig) {
		c.allowedExtensions = exts
	}
}

// WithMaxFileSize sets the maximum readable file size. Default is 10MB.
func WithMaxFileSize(bytes int64) FileOption {
	return func(c *fileConfig) {
		c.maxFileSize = bytes
	}
}

func applyFileOpts(opts []FileOption) *fileConfig {
	cfg := &fileConfig{
		maxFileSize: 10 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *fileConfig) resolvePath(path string) (string, error) {
	path = filepath.Clean(path)
	if c.basePath != "" {
		base := filepath.Clean(c.basePath)
		full := filepath.Join(base, path)
		rel, err := filepath.Rel(base, full)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("path %q is outside base path %q", path, base)
		}
		path = full
	}
	return path, nil
}

func (c *fileConfig) checkExtension(path string) error {
	if len(c.allowedExtensions) == 0 {
		return nil
	}
	ext := filepath.Ext(path)
	for _, allowed := range c.allowedExtensions {
		if ext == allowed || ext == "."+allowed {
			return nil
		}
	}
	return fmt.Errorf("extension %q not allowed", ext)
}

var readFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "Path to the file to read"},
		"start_line": {"type": "integer", "description": "1-based line to start reading from"},
		"end_line": {"type": "integer", "description": "1-based line to stop reading at (inclusive)"}
	},
	"required": ["path"]
}`)

// ReadFile returns a tool that reads file contents, optionally limited to a
// line range.
func ReadFile(opts ...FileOption) invoke.Definition {
	cfg := applyFileOpts(opts)

	return invoke.Definition{
		Tool: ai.Tool{
			Name:        "read_file",
			Description: "Read the contents of a file",
			Parameters:  readFileSchema,
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			raw, _ := args["path"].(string)
			if raw == "" {
				return "", fmt.Errorf("read_file: path is required")
			}

			path, err := cfg.resolvePath(raw)
			if err != nil {
				return "", err
			}
			if err := cfg.checkExtension(path); err != nil {
				return "", err
			}

			info, err := os.Stat(path)
			if err != nil {
				return "", err
			}
			if info.Size() > cfg.maxFileSize {
				return "", fmt.Errorf("read_file: %s exceeds maximum size %d", raw, cfg.maxFileSize)
			}

			start := intArg(args, "start_line")
			end := intArg(args, "end_line")
			if start > 0 || end > 0 {
				return readLineRange(path, start, end)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	}
}

var listDirSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "Directory to list"}
	},
	"required": ["path"]
}`)

// ListDir returns a tool that lists directory entries, one per line, with a
// trailing slash on subdirectories.
func ListDir(opts ...FileOption) invoke.Definition {
	cfg := applyFileOpts(opts)

	return invoke.Definition{
		Tool: ai.Tool{
			Name:        "list_dir",
			Description: "List the entries of a directory",
			Parameters:  listDirSchema,
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			raw, _ := args["path"].(string)
			if raw == "" {
				return "", fmt.Errorf("list_dir: path is required")
			}

			path, err := cfg.resolvePath(raw)
			if err != nil {
				return "", err
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			for _, entry := range entries {
				b.WriteString(entry.Name())
				if entry.IsDir() {
					b.WriteByte('/')
				}
				b.WriteByte('\n')
			}
			return b.String(), nil
		},
	}
}

func intArg(args map[string]any, key string) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}

func readLineRange(path string, start, end int) (string, error) {
	if start < 1 {
		start = 1
	}
	if end > 0 && end < start {
		return "", fmt.Errorf("end_line (%d) must be >= start_line (%d)", end, start)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var result strings.Builder
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if lineNum < start {
			continue
		}
		if end > 0 && lineNum > end {
			break
		}
		if result.Len() > 0 {
			result.WriteByte('\n')
		}
		result.WriteString(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if lineNum < start {
		return "", fmt.Errorf("start_line %d is beyond file length (%d lines)", start, lineNum)
	}
	return result.String(), nil
}
