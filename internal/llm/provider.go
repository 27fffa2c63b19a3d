// Package llm provides a provider-agnostic completion interface over the
// Anthropic Claude and Google Gemini APIs, used by the extractor and scoring
// pipeline for JD-field extraction and targeted scoring.
package llm

import (
	"context"
)

// ProviderType identifies which cloud LLM backs a Provider.
type ProviderType string

const (
	ProviderClaude ProviderType = "claude"
	ProviderGemini ProviderType = "gemini"
)

// CompletionRequest is a provider-agnostic single-turn completion request.
// The pipeline always runs single-turn, JSON-producing prompts, so there is
// no multi-message history here the way the teacher's Chat() API carries.
type CompletionRequest struct {
	SystemPrompt    string
	UserPrompt      string
	Temperature     float64
	MaxOutputTokens int
}

// CompletionResponse is a provider-agnostic completion result.
type CompletionResponse struct {
	Text        string
	Provider    ProviderType
	Model       string
	TokensIn    int
	TokensOut   int
	LatencyMS   int64
}

// Provider generates a single completion from a prompt pair.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Type() ProviderType
	Close() error
}

// Config selects and tunes the active provider. Only one of ClaudeAPIKey /
// GeminiAPIKey needs to be set, matching whichever Provider value is chosen.
type Config struct {
	Provider        ProviderType
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         int // seconds
	ClaudeAPIKey    string
	GeminiAPIKey    string
}

// clampMaxOutputTokens bounds the configurable output-token budget the spec
// fixes at [128,700] for the extractor's JSON-producing prompts.
func clampMaxOutputTokens(n int) int {
	if n < 128 {
		return 128
	}
	if n > 700 {
		return 700
	}
	return n
}
