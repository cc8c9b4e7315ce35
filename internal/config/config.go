// Package config provides the configuration schema and loader for the
// Concento consent-summary service.
package config

import "github.com/evalden/concento/pkg/types"

// LogLevel controls log verbosity for the Concento server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Concento.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	History   HistoryConfig   `yaml:"history"`
	Audit     AuditConfig     `yaml:"audit"`

	// DefaultLanguage is the conversation language for sessions that never
	// state one. Defaults to English.
	DefaultLanguage types.Language `yaml:"default_language"`
}

// ServerConfig holds network and logging settings for the Concento server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation backs each pipeline
// stage. Transcription and speech always run on the OpenAI audio endpoints;
// the generative side may be re-pointed at any supported LLM backend.
type ProvidersConfig struct {
	LLM LLMConfig `yaml:"llm"`
	STT STTConfig `yaml:"stt"`
	TTS TTSConfig `yaml:"tts"`
}

// LLMConfig selects the generative-language backend.
type LLMConfig struct {
	// Name selects the backend: "openai" (default, uses the shared OpenAI
	// client) or one of "anthropic", "gemini", "ollama", "deepseek",
	// "mistral", "groq", "llamacpp", "llamafile".
	Name string `yaml:"name"`

	// Model selects a specific model within the backend (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// APIKey is the authentication key. Falls back to the backend's usual
	// environment variable when empty.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string `yaml:"base_url"`
}

// STTConfig configures speech-to-text transcription.
type STTConfig struct {
	// Model is the transcription model (e.g., "gpt-4o-transcribe").
	Model string `yaml:"model"`
}

// TTSConfig configures text-to-speech synthesis.
type TTSConfig struct {
	// Model is the speech model (e.g., "gpt-4o-mini-tts").
	Model string `yaml:"model"`

	// Voice is the synthetic voice name (e.g., "ash").
	Voice string `yaml:"voice"`
}

// SessionsConfig selects and tunes the session store.
type SessionsConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend string `yaml:"backend"`

	// TTLHours is how long an idle session survives before eviction.
	// Zero keeps the store default of 24 hours.
	TTLHours int `yaml:"ttl_hours"`

	// MaxSessions caps resident sessions for the in-memory store.
	// Zero keeps the store default of 10000.
	MaxSessions int `yaml:"max_sessions"`

	// Redis configures the redis backend. Ignored for "memory".
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	// Addr is the host:port of the redis server.
	Addr string `yaml:"addr"`

	// Password authenticates against the server. Empty means no auth.
	Password string `yaml:"password"`

	// DB selects the redis logical database.
	DB int `yaml:"db"`
}

// HistoryConfig tunes the conversation recap handed to the Q&A prompt.
type HistoryConfig struct {
	// MaxPairs bounds the recap to this many question/answer pairs.
	// Zero keeps the default of 3.
	MaxPairs int `yaml:"max_pairs"`
}

// AuditConfig selects the consent-record store.
type AuditConfig struct {
	// Backend is "file" (default) or "postgres".
	Backend string `yaml:"backend"`

	// Path is the JSONL file path for the file backend.
	Path string `yaml:"path"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`
}
