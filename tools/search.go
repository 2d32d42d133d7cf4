package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/invoke"
)

// SearchOption configures the search tool.
type SearchOption func(*searchConfig)

type searchConfig struct {
	basePath        string
	maxResults      int
	excludePatterns []string
}

// WithSearchPath sets the base path for searches.
func WithSearchPath(path string) SearchOption {
	return func(c *searchConfig) {
		c.basePath = path
	}
}

// WithMaxResults limits the number of search results. Default is 100.
func WithMaxResults(n int) SearchOption {
	return func(c *searchConfig) {
		c.maxResults = n
	}
}

// WithExcludePatterns sets glob patterns for file names to skip.
func WithExcludePatterns(patterns ...string) SearchOption {
	return func(c *searchConfig) {
		c.excludePatterns = patterns
	}
}

func applySearchOpts(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		maxResults: 100,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.basePath == "" {
		cfg.basePath = "."
	}
	return cfg
}

func (c *searchConfig) excluded(name string) bool {
	for _, pattern := range c.excludePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

var searchFilesSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"pattern": {"type": "string", "description": "Regex pattern to search for"},
		"path": {"type": "string", "description": "Directory to search in, relative to the search base"},
		"file_pattern": {"type": "string", "description": "Glob pattern for file names (e.g., *.go)"}
	},
	"required": ["pattern"]
}`)

// SearchFiles returns a tool that searches file contents with a regex and
// reports per-line matches as JSON.
func SearchFiles(opts ...SearchOption) invoke.Definition {
	cfg := applySearchOpts(opts)

	return invoke.Definition{
		Tool: ai.Tool{
			Name:        "search_files",
			Description: "Search for a pattern in file contents",
			Parameters:  searchFilesSchema,
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, _ := args["pattern"].(string)
			if pattern == "" {
				return "", fmt.Errorf("search_files: pattern is required")
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return "", err
			}

			searchPath := cfg.basePath
			if sub, _ := args["path"].(string); sub != "" {
				searchPath = filepath.Join(cfg.basePath, sub)
			}
			filePattern, _ := args["file_pattern"].(string)

			type match struct {
				File    string `json:"file"`
				Line    int    `json:"line"`
				Content string `json:"content"`
			}

			var matches []match

			walkErr := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
				if err != nil || info.IsDir() {
					return nil
				}
				if filePattern != "" {
					if matched, _ := filepath.Match(filePattern, info.Name()); !matched {
						return nil
					}
				}
				if cfg.excluded(info.Name()) {
					return nil
				}
				// Skip very large files.
				if info.Size() > 10*1024*1024 {
					return nil
				}

				f, err := os.Open(path)
				if err != nil {
					return nil
				}
				defer f.Close()

				scanner := bufio.NewScanner(f)
				lineNum := 0
				for scanner.Scan() {
					lineNum++
					line := scanner.Text()
					if !re.MatchString(line) {
						continue
					}

					relPath, _ := filepath.Rel(cfg.basePath, path)
					if relPath == "" {
						relPath = path
					}
					content := strings.TrimSpace(line)
					if len(content) > 200 {
						content = content[:200] + "..."
					}

					matches = append(matches, match{
						File:    relPath,
						Line:    lineNum,
						Content: content,
					})
					if len(matches) >= cfg.maxResults {
						return filepath.SkipAll
					}
				}
				return nil
			})
			if walkErr != nil && walkErr != filepath.SkipAll {
				return "", walkErr
			}

			result := struct {
				Pattern   string  `json:"pattern"`
				Count     int     `json:"count"`
				Truncated bool    `json:"truncated,omitempty"`
				Matches   []match `json:"matches"`
			}{
				Pattern:   pattern,
				Count:     len(matches),
				Truncated: len(matches) >= cfg.maxResults,
				Matches:   matches,
			}

			out, err := json.Marshal(result)
			if err != nil {
				return "", err
			}
			return string(out), nil
		},
	}
}
