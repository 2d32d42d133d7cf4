package main

import (
	"context"
	"fmt"
	"os"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/config"
	"github.com/spetersoncode/reins/provider/anthropic"
	"github.com/spetersoncode/reins/provider/google"
	"github.com/spetersoncode/reins/provider/ollama"
	"github.com/spetersoncode/reins/provider/openai"
)

// buildProvider constructs the configured ChatProvider. API keys come from
// the config file (after env expansion) or the conventional environment
// variables.
func buildProvider(cfg *config.Config) (ai.ChatProvider, error) {
	p := cfg.Provider
	switch p.Name {
	case "anthropic":
		var opts []anthropic.ClientOption
		if p.APIKey != "" {
			opts = append(opts, anthropic.WithAPIKey(p.APIKey))
		}
		if p.Model != "" {
			opts = append(opts, anthropic.WithModel(p.Model))
		}
		return anthropic.New(opts...), nil

	case "openai":
		var opts []openai.ClientOption
		if p.APIKey != "" {
			opts = append(opts, openai.WithAPIKey(p.APIKey))
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		if p.Model != "" {
			opts = append(opts, openai.WithModel(p.Model))
		}
		return openai.New(opts...), nil

	case "google":
		key := p.APIKey
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("google provider requires an API key")
		}
		var opts []google.ClientOption
		if p.Model != "" {
			opts = append(opts, google.WithModel(p.Model))
		}
		return google.New(context.Background(), key, opts...)

	case "ollama", "":
		var opts []ollama.ClientOption
		if p.BaseURL != "" {
			opts = append(opts, ollama.WithBaseURL(p.BaseURL))
		}
		if p.Model != "" {
			opts = append(opts, ollama.WithModel(p.Model))
		}
		return ollama.New(opts...), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", p.Name)
	}
}
