package main

import (
	"testing"

	"github.com/evalden/concento/internal/config"
)

func TestOpenAIAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		cfgKey  string
		envKey  string
		want    string
	}{
		{"openai backend uses config key", "openai", "sk-cfg", "sk-env", "sk-cfg"},
		{"empty backend uses config key", "", "sk-cfg", "sk-env", "sk-cfg"},
		{"openai backend falls back to env", "openai", "", "sk-env", "sk-env"},
		{"anthropic key never leaks to audio client", "anthropic", "sk-ant", "sk-env", "sk-env"},
		{"other backend without env yields empty", "ollama", "unused", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.envKey)

			cfg := &config.Config{}
			cfg.Providers.LLM.Name = tt.backend
			cfg.Providers.LLM.APIKey = tt.cfgKey

			if got := openAIAPIKey(cfg); got != tt.want {
				t.Errorf("openAIAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
