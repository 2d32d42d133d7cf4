package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/invoke"
)

// HTTPOption configures the HTTP tool.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	client          *http.Client
	allowedHosts    []string
	blockedHosts    []string
	maxResponseSize int64
	timeout         time.Duration
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.client = c
	}
}

// WithAllowedHosts restricts requests to the given hosts and their
// subdomains.
func WithAllowedHosts(hosts ...string) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.allowedHosts = hosts
	}
}

// WithBlockedHosts blocks requests to the given hosts and their subdomains.
func WithBlockedHosts(hosts ...string) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.blockedHosts = hosts
	}
}

// WithMaxResponseSize sets the maximum response body size. Default is 1MB.
func WithMaxResponseSize(bytes int64) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.maxResponseSize = bytes
	}
}

// WithHTTPTimeout sets the request timeout. Default is 30 seconds.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.timeout = d
	}
}

func applyHTTPOpts(opts []HTTPOption) *httpConfig {
	cfg := &httpConfig{
		maxResponseSize: 1024 * 1024,
		timeout:         30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.client == nil {
		cfg.client = &http.Client{Timeout: cfg.timeout}
	}
	return cfg
}

func (c *httpConfig) checkHost(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return err
	}
	host := u.Hostname()

	for _, blocked := range c.blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return fmt.Errorf("host %q is blocked", host)
		}
	}
	if len(c.allowedHosts) > 0 {
		for _, a := range c.allowedHosts {
			if host == a || strings.HasSuffix(host, "."+a) {
				return nil
			}
		}
		return fmt.Errorf("host %q is not in allowed list", host)
	}
	return nil
}

var httpRequestSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"url": {"type": "string", "description": "URL to request"},
		"method": {"type": "string", "description": "HTTP method", "enum": ["GET", "POST", "PUT", "DELETE", "PATCH"]},
		"body": {"type": "string", "description": "Request body (for POST/PUT/PATCH)"}
	},
	"required": ["url"]
}`)

// HTTPRequest returns a tool that makes HTTP requests, subject to host
// allow/block lists and a response size cap. Results include status, key
// headers, and body as JSON. Marked retryable since transport failures
// dominate.
func HTTPRequest(opts ...HTTPOption) invoke.Definition {
	cfg := applyHTTPOpts(opts)

	return invoke.Definition{
		Tool: ai.Tool{
			Name:        "http_request",
			Description: "Make an HTTP request to a URL",
			Parameters:  httpRequestSchema,
		},
		Retryable: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			urlStr, _ := args["url"].(string)
			if urlStr == "" {
				return "", fmt.Errorf("http_request: url is required")
			}
			if err := cfg.checkHost(urlStr); err != nil {
				return "", err
			}

			method, _ := args["method"].(string)
			if method == "" {
				method = http.MethodGet
			}

			var body io.Reader
			if bodyStr, _ := args["body"].(string); bodyStr != "" {
				body = bytes.NewBufferString(bodyStr)
			}

			req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
			if err != nil {
				return "", err
			}

			resp, err := cfg.client.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(io.LimitReader(resp.Body, cfg.maxResponseSize))
			if err != nil {
				return "", err
			}

			result := struct {
				Status     string            `json:"status"`
				StatusCode int               `json:"status_code"`
				Headers    map[string]string `json:"headers"`
				Body       string            `json:"body"`
			}{
				Status:     resp.Status,
				StatusCode: resp.StatusCode,
				Headers:    make(map[string]string),
				Body:       string(respBody),
			}
			for _, h := range []string{"Content-Type", "Content-Length", "Date", "Server"} {
				if v := resp.Header.Get(h); v != "" {
					result.Headers[h] = v
				}
			}

			out, err := json.Marshal(result)
			if err != nil {
				return "", err
			}
			return string(out), nil
		},
	}
}
