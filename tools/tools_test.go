package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculator(t *testing.T) {
	def := Calculator()
	ctx := context.Background()

	cases := []struct {
		name string
		args map[string]any
		want string
	}{
		{"add", map[string]any{"a": 5.0, "b": 3.0, "op": "add"}, "8"},
		{"sub", map[string]any{"a": 5.0, "b": 3.0, "op": "sub"}, "2"},
		{"mul", map[string]any{"a": 2.5, "b": 4.0, "op": "mul"}, "10"},
		{"div", map[string]any{"a": 7.0, "b": 2.0, "op": "div"}, "3.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := def.Handler(ctx, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("division by zero", func(t *testing.T) {
		_, err := def.Handler(ctx, map[string]any{"a": 1.0, "b": 0.0, "op": "div"})
		assert.ErrorContains(t, err, "division by zero")
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := def.Handler(ctx, map[string]any{"a": 1.0, "b": 2.0, "op": "pow"})
		assert.ErrorContains(t, err, "unknown operation")
	})
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	content := "line one\nline two\nline three\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(content), 0o644))

	def := ReadFile(WithBasePath(dir))
	ctx := context.Background()

	t.Run("whole file", func(t *testing.T) {
		got, err := def.Handler(ctx, map[string]any{"path": "notes.txt"})
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("line range", func(t *testing.T) {
		got, err := def.Handler(ctx, map[string]any{
			"path":       "notes.txt",
			"start_line": 2.0,
			"end_line":   3.0,
		})
		require.NoError(t, err)
		assert.Equal(t, "line two\nline three", got)
	})

	t.Run("escape attempt rejected", func(t *testing.T) {
		_, err := def.Handler(ctx, map[string]any{"path": "../../etc/passwd"})
		assert.ErrorContains(t, err, "outside base path")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := def.Handler(ctx, map[string]any{})
		assert.ErrorContains(t, err, "path is required")
	})

	t.Run("extension filter", func(t *testing.T) {
		filtered := ReadFile(WithBasePath(dir), WithAllowedExtensions("md"))
		_, err := filtered.Handler(ctx, map[string]any{"path": "notes.txt"})
		assert.ErrorContains(t, err, "not allowed")
	})

	t.Run("size cap", func(t *testing.T) {
		small := ReadFile(WithBasePath(dir), WithMaxFileSize(4))
		_, err := small.Handler(ctx, map[string]any{"path": "notes.txt"})
		assert.ErrorContains(t, err, "exceeds maximum size")
	})
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	def := ListDir(WithBasePath(dir))

	got, err := def.Handler(context.Background(), map[string]any{"path": "."})
	require.NoError(t, err)
	assert.Contains(t, got, "a.txt\n")
	assert.Contains(t, got, "sub/\n")
}

func TestSearchFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.go"), []byte("package main\n\nfunc helper() {}\n"), 0o644))

	def := SearchFiles(WithSearchPath(dir))
	ctx := context.Background()

	t.Run("finds matches", func(t *testing.T) {
		got, err := def.Handler(ctx, map[string]any{"pattern": `func \w+\(`})
		require.NoError(t, err)
		assert.Contains(t, got, "main.go")
		assert.Contains(t, got, "util.go")
		assert.Contains(t, got, `"count":2`)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := def.Handler(ctx, map[string]any{"pattern": "[unclosed"})
		assert.Error(t, err)
	})
}
