package unifiedllm

import "strings"

// ModelInfo describes a known model.
type ModelInfo struct {
	ID                string   `json:"id" yaml:"id"`
	Provider          string   `json:"provider" yaml:"provider"`
	DisplayName       string   `json:"display_name" yaml:"display_name"`
	ContextWindow     int      `json:"context_window" yaml:"context_window"`
	MaxOutput         int      `json:"max_output,omitempty" yaml:"max_output,omitempty"`
	SupportsTools     bool     `json:"supports_tools" yaml:"supports_tools"`
	SupportsStreaming bool     `json:"supports_streaming" yaml:"supports_streaming"`
	Aliases           []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Models is the built-in catalog, newest first within each provider.
var Models = []ModelInfo{
	{
		ID: "gemini-2.5-flash", Provider: "gemini", DisplayName: "Gemini 2.5 Flash",
		ContextWindow: 1048576, MaxOutput: 65536,
		SupportsTools: true, SupportsStreaming: true,
		Aliases: []string{"gemini-flash", "flash"},
	},
	{
		ID: "gemini-2.5-pro", Provider: "gemini", DisplayName: "Gemini 2.5 Pro",
		ContextWindow: 1048576, MaxOutput: 65536,
		SupportsTools: true, SupportsStreaming: true,
		Aliases: []string{"gemini-pro"},
	},
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, MaxOutput: 16384,
		SupportsTools: true, SupportsStreaming: true,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},
	{
		ID: "claude-haiku-4-5", Provider: "anthropic", DisplayName: "Claude Haiku 4.5",
		ContextWindow: 200000, MaxOutput: 8192,
		SupportsTools: true, SupportsStreaming: true,
		Aliases: []string{"haiku"},
	},
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxOutput: 16384,
		SupportsTools: true, SupportsStreaming: true,
	},
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini",
		ContextWindow: 128000, MaxOutput: 16384,
		SupportsTools: true, SupportsStreaming: true,
		Aliases: []string{"mini"},
	},
}

// GetModelInfo returns the catalog entry for a model ID or alias, or nil.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if strings.EqualFold(Models[i].ID, modelID) {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if strings.EqualFold(alias, modelID) {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	var result []ModelInfo
	for _, m := range Models {
		if provider == "" || m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// DefaultModel returns the first catalog model for provider, or nil.
func DefaultModel(provider string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider == provider {
			return &Models[i]
		}
	}
	return nil
}
