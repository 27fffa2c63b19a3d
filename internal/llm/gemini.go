package llm

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/jobops/triage/internal/apperr"
)

// GeminiProvider implements Provider using the Google Gemini API.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiProvider constructs a GeminiProvider, defaulting the model name
// when the config leaves it blank.
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "google api key is required for gemini provider")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalFailure, "failed to initialize gemini client", err)
	}

	return &GeminiProvider{client: client, model: model, timeout: timeout}, nil
}

func (p *GeminiProvider) Type() ProviderType { return ProviderGemini }

func (p *GeminiProvider) Close() error { return nil }

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	maxTokens := clampMaxOutputTokens(req.MaxOutputTokens)

	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{genai.NewPartFromText(req.UserPrompt)}},
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(timeoutCtx, p.model, contents, config)
	if err != nil {
		return CompletionResponse{}, apperr.Wrap(apperr.KindExternalFailure, "gemini completion failed", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				text.WriteString(part.Text)
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	if text.Len() == 0 {
		return CompletionResponse{}, apperr.New(apperr.KindExternalFailure, "gemini returned no text content")
	}

	tokensIn, tokensOut := 0, 0
	if resp.UsageMetadata != nil {
		tokensIn = int(resp.UsageMetadata.PromptTokenCount)
		tokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return CompletionResponse{
		Text:      text.String(),
		Provider:  ProviderGemini,
		Model:     p.model,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}
