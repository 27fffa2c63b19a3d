package llm

import "testing"

func TestClampMaxOutputTokens(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 128},
		{50, 128},
		{128, 128},
		{400, 400},
		{700, 700},
		{5000, 700},
	}
	for _, tt := range tests {
		if got := clampMaxOutputTokens(tt.in); got != tt.want {
			t.Errorf("clampMaxOutputTokens(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewProviderRejectsUnconfigured(t *testing.T) {
	if _, err := NewProvider(nil, Config{}); err == nil {
		t.Fatalf("expected error for empty provider config")
	}
	if _, err := NewProvider(nil, Config{Provider: "bogus"}); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}
