// Package llmtest provides a scripted llm.Provider double for tests in
// packages that call out to an LLM (extractor, scoring), so those tests run
// without network access or API keys.
package llmtest

import (
	"context"

	"github.com/jobops/triage/internal/llm"
)

// FakeProvider returns responses from Responses in call order, or repeats
// the last one once exhausted. Err, when set, is returned instead.
type FakeProvider struct {
	Responses []string
	Err       error
	calls     int
	Requests  []llm.CompletionRequest
}

func (f *FakeProvider) Type() llm.ProviderType { return "fake" }

func (f *FakeProvider) Close() error { return nil }

func (f *FakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return llm.CompletionResponse{}, f.Err
	}
	if len(f.Responses) == 0 {
		return llm.CompletionResponse{Text: "{}", Provider: "fake"}, nil
	}
	idx := f.calls
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	f.calls++
	return llm.CompletionResponse{
		Text:      f.Responses[idx],
		Provider:  "fake",
		Model:     "fake-model",
		TokensIn:  10,
		TokensOut: 20,
	}, nil
}
