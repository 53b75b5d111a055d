package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RemoteConfig selects and configures the expensive structuring backend.
type RemoteConfig struct {
	Provider string // openai, deepseek, gemini, anthropic or off
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// NewRemote builds the configured remote oracle. It returns nil when the
// provider is off or no API key is set; callers then skip escalation.
func NewRemote(ctx context.Context, cfg RemoteConfig) (Oracle, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "off" || cfg.APIKey == "" {
		return nil, nil
	}
	switch provider {
	case "deepseek":
		base := cfg.BaseURL
		if base == "" {
			base = DeepSeekBaseURL
		}
		return NewOpenAIClient(provider, cfg.APIKey, base, orDefault(cfg.Model, "deepseek-chat"), cfg.Timeout), nil
	case "openai":
		return NewOpenAIClient(provider, cfg.APIKey, cfg.BaseURL, orDefault(cfg.Model, "gpt-4o-mini"), cfg.Timeout), nil
	case "gemini":
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "anthropic":
		return NewClaudeClient(cfg.APIKey, cfg.BaseURL, orDefault(cfg.Model, "claude-sonnet-4-5"), cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown remote provider %q", cfg.Provider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
