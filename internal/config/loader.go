package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidLLMBackends lists the recognised generative-language backend names.
// Used by [Validate] to warn about unrecognised names.
var ValidLLMBackends = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek",
	"mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when TLS is configured"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when TLS is configured"))
		}
	}

	// Language
	if cfg.DefaultLanguage != "" && !cfg.DefaultLanguage.IsValid() {
		errs = append(errs, fmt.Errorf("default_language %q is invalid; valid values: English, Svenska", cfg.DefaultLanguage))
	}

	// LLM backend name — warn only, third-party backends may exist.
	if name := cfg.Providers.LLM.Name; name != "" && !slices.Contains(ValidLLMBackends, name) {
		slog.Warn("unknown llm backend name — may be a typo",
			"name", name,
			"known", ValidLLMBackends,
		)
	}

	// Sessions
	switch cfg.Sessions.Backend {
	case "", "memory":
	case "redis":
		if cfg.Sessions.Redis.Addr == "" {
			errs = append(errs, errors.New("sessions.redis.addr is required when sessions.backend is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("sessions.backend %q is invalid; valid values: memory, redis", cfg.Sessions.Backend))
	}
	if cfg.Sessions.TTLHours < 0 {
		errs = append(errs, fmt.Errorf("sessions.ttl_hours %d must not be negative", cfg.Sessions.TTLHours))
	}
	if cfg.Sessions.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("sessions.max_sessions %d must not be negative", cfg.Sessions.MaxSessions))
	}

	// History
	if cfg.History.MaxPairs < 0 {
		errs = append(errs, fmt.Errorf("history.max_pairs %d must not be negative", cfg.History.MaxPairs))
	}

	// Audit
	switch cfg.Audit.Backend {
	case "", "file":
	case "postgres":
		if cfg.Audit.PostgresDSN == "" {
			errs = append(errs, errors.New("audit.postgres_dsn is required when audit.backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.backend %q is invalid; valid values: file, postgres", cfg.Audit.Backend))
	}

	return errors.Join(errs...)
}
