package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jobops/triage/internal/apperr"
)

// ClaudeProvider implements Provider using the Anthropic Claude API.
type ClaudeProvider struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewClaudeProvider constructs a ClaudeProvider, defaulting the model name
// when the config leaves it blank.
func NewClaudeProvider(cfg Config) (*ClaudeProvider, error) {
	if cfg.ClaudeAPIKey == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "anthropic api key is required for claude provider")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.ClaudeAPIKey))
	return &ClaudeProvider{client: client, model: model, timeout: timeout}, nil
}

func (p *ClaudeProvider) Type() ProviderType { return ProviderClaude }

func (p *ClaudeProvider) Close() error { return nil }

func (p *ClaudeProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	maxTokens := clampMaxOutputTokens(req.MaxOutputTokens)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	params.Temperature = anthropic.Float(req.Temperature)

	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return CompletionResponse{}, apperr.Wrap(apperr.KindExternalFailure, "claude completion failed", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return CompletionResponse{}, apperr.New(apperr.KindExternalFailure, "claude returned no text content")
	}

	return CompletionResponse{
		Text:      text.String(),
		Provider:  ProviderClaude,
		Model:     p.model,
		TokensIn:  int(resp.Usage.InputTokens),
		TokensOut: int(resp.Usage.OutputTokens),
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}
