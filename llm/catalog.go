package llm

import "strings"

// ModelInfo describes a known model in the catalog. Capability flags encode
// model-family quirks so adapters never branch on model-name substrings at
// call time.
type ModelInfo struct {
	ID                  string   `json:"id"`
	Provider            Provider `json:"provider"`
	ContextWindow       int      `json:"context_window"`
	MaxOutput           int      `json:"max_output"`
	SupportsTemperature bool     `json:"supports_temperature"`
	SupportsTools       bool     `json:"supports_tools"`
	// UsesMaxCompletionTokens marks models whose token budget field is
	// max_completion_tokens rather than max_tokens.
	UsesMaxCompletionTokens bool     `json:"uses_max_completion_tokens"`
	Aliases                 []string `json:"aliases,omitempty"`
}

// Models is the built-in model catalog.
var Models = []ModelInfo{
	// Anthropic
	{
		ID: "claude-sonnet-4-5", Provider: ProviderAnthropic,
		ContextWindow: 200000, MaxOutput: 16384,
		SupportsTemperature: true, SupportsTools: true,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},
	{
		ID: "claude-haiku-4-5", Provider: ProviderAnthropic,
		ContextWindow: 200000, MaxOutput: 8192,
		SupportsTemperature: true, SupportsTools: true,
		Aliases: []string{"haiku", "claude-haiku"},
	},

	// OpenAI
	{
		ID: "gpt-4o", Provider: ProviderOpenAI,
		ContextWindow: 128000, MaxOutput: 16384,
		SupportsTemperature: true, SupportsTools: true,
		Aliases: []string{"gpt4o"},
	},
	{
		ID: "gpt-4o-mini", Provider: ProviderOpenAI,
		ContextWindow: 128000, MaxOutput: 16384,
		SupportsTemperature: true, SupportsTools: true,
		Aliases: []string{"gpt4o-mini"},
	},
	{
		ID: "o1-mini", Provider: ProviderOpenAI,
		ContextWindow: 128000, MaxOutput: 65536,
		SupportsTemperature: false, SupportsTools: false,
		UsesMaxCompletionTokens: true,
	},
	{
		ID: "o1", Provider: ProviderOpenAI,
		ContextWindow: 200000, MaxOutput: 100000,
		SupportsTemperature: false, SupportsTools: false,
		UsesMaxCompletionTokens: true,
	},

	// Gemini
	{
		ID: "gemini-2.0-flash", Provider: ProviderGemini,
		ContextWindow: 1048576, MaxOutput: 8192,
		SupportsTemperature: true, SupportsTools: true,
		Aliases: []string{"gemini-flash"},
	},
	{
		ID: "gemini-1.5-pro", Provider: ProviderGemini,
		ContextWindow: 2097152, MaxOutput: 8192,
		SupportsTemperature: true, SupportsTools: true,
		Aliases: []string{"gemini-pro"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ModelQuirks returns the capability flags for a model. Unknown models fall
// back to the permissive defaults, except OpenAI reasoning families
// (o-series) which are recognized by prefix so new snapshots keep working.
func ModelQuirks(modelID string) ModelInfo {
	if info := GetModelInfo(modelID); info != nil {
		return *info
	}
	if isReasoningFamily(modelID) {
		return ModelInfo{
			ID:                      modelID,
			Provider:                ProviderOpenAI,
			SupportsTemperature:     false,
			SupportsTools:           false,
			UsesMaxCompletionTokens: true,
		}
	}
	return ModelInfo{
		ID:                  modelID,
		SupportsTemperature: true,
		SupportsTools:       true,
	}
}

func isReasoningFamily(modelID string) bool {
	for _, prefix := range []string{"o1", "o3", "o4"} {
		if modelID == prefix || strings.HasPrefix(modelID, prefix+"-") {
			return true
		}
	}
	return false
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(p Provider) []ModelInfo {
	if p == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == p {
			result = append(result, m)
		}
	}
	return result
}
