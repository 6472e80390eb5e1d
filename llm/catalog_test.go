package llm

import "testing"

func TestGetModelInfoAlias(t *testing.T) {
	info := GetModelInfo("sonnet")
	if info == nil {
		t.Fatal("alias lookup failed")
	}
	if info.ID != "claude-sonnet-4-5" || info.Provider != ProviderAnthropic {
		t.Errorf("info = %+v", info)
	}
	if GetModelInfo("no-such-model") != nil {
		t.Error("unknown model should return nil")
	}
}

func TestModelQuirksReasoningFallback(t *testing.T) {
	// A snapshot not in the catalog should still be recognized by family.
	quirks := ModelQuirks("o3-mini-2025-01-31")
	if quirks.SupportsTemperature || quirks.SupportsTools {
		t.Errorf("reasoning quirks = %+v", quirks)
	}
	if !quirks.UsesMaxCompletionTokens {
		t.Error("reasoning models use max_completion_tokens")
	}
}

func TestModelQuirksUnknownIsPermissive(t *testing.T) {
	quirks := ModelQuirks("some-future-model")
	if !quirks.SupportsTemperature || !quirks.SupportsTools || quirks.UsesMaxCompletionTokens {
		t.Errorf("unknown model quirks = %+v", quirks)
	}
	// "oracle-1" starts with o but is not an o-series model.
	if ModelQuirks("oracle-1").UsesMaxCompletionTokens {
		t.Error("prefix match must require a dash boundary")
	}
}

func TestListModels(t *testing.T) {
	all := ListModels("")
	if len(all) != len(Models) {
		t.Errorf("ListModels(\"\") = %d entries, want %d", len(all), len(Models))
	}
	for _, m := range ListModels(ProviderGemini) {
		if m.Provider != ProviderGemini {
			t.Errorf("filter leaked %s model %s", m.Provider, m.ID)
		}
	}
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want Provider
	}{
		{"anthropic", ProviderAnthropic},
		{"Claude", ProviderAnthropic},
		{"openai", ProviderOpenAI},
		{"GPT", ProviderOpenAI},
		{"gemini", ProviderGemini},
		{" google ", ProviderGemini},
	}
	for _, tt := range tests {
		got, err := ParseProvider(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseProvider(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseProvider("mistral"); err == nil {
		t.Error("unknown provider should error")
	}
}
