// Package config loads assistant settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/ferrywell/devpad/llm"
)

// Config holds everything needed to run a session against one project.
type Config struct {
	Provider         string `env:"DEVPAD_PROVIDER" envDefault:"anthropic"`
	Model            string `env:"DEVPAD_MODEL"`
	APIKey           string `env:"DEVPAD_API_KEY"`
	Root             string `env:"DEVPAD_ROOT" envDefault:"."`
	MaxIterations    int    `env:"DEVPAD_MAX_ITERATIONS" envDefault:"10"`
	CommandTimeoutMS int    `env:"DEVPAD_COMMAND_TIMEOUT_MS" envDefault:"30000"`
}

// defaultModels picks a model when DEVPAD_MODEL is unset.
var defaultModels = map[llm.Provider]string{
	llm.ProviderAnthropic: "claude-sonnet-4-5",
	llm.ProviderOpenAI:    "gpt-4o",
	llm.ProviderGemini:    "gemini-2.0-flash",
}

// Load parses and validates the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	provider, err := llm.ParseProvider(cfg.Provider)
	if err != nil {
		return Config{}, err
	}
	cfg.Provider = string(provider)

	if cfg.Model == "" {
		cfg.Model = defaultModels[provider]
	}
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("DEVPAD_API_KEY is required")
	}
	if cfg.MaxIterations <= 0 {
		return Config{}, fmt.Errorf("DEVPAD_MAX_ITERATIONS must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.CommandTimeoutMS <= 0 {
		return Config{}, fmt.Errorf("DEVPAD_COMMAND_TIMEOUT_MS must be positive, got %d", cfg.CommandTimeoutMS)
	}
	return cfg, nil
}
