package llm

import (
	"context"

	"github.com/jobops/triage/internal/apperr"
)

// NewProvider selects and constructs the configured Provider implementation.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderClaude:
		return NewClaudeProvider(cfg)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	case "":
		return nil, apperr.New(apperr.KindInvalidInput, "llm provider not configured")
	default:
		return nil, apperr.New(apperr.KindInvalidInput, "unsupported llm provider: "+string(cfg.Provider))
	}
}
