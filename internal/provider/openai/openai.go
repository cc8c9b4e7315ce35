// Package openai implements the full collaborator facade against the OpenAI
// API: chat completions for summaries and Q&A, audio transcriptions for
// speech-to-text, and audio speech for text-to-speech.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/evalden/concento/internal/prompt"
	"github.com/evalden/concento/internal/provider"
	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

// Models selects the OpenAI model for each capability.
type Models struct {
	// Chat drives Summarize and Answer. Default: "gpt-4o".
	Chat string

	// Transcribe is the speech-to-text model. Default: "gpt-4o-transcribe".
	Transcribe string

	// Speech is the text-to-speech model. Default: "gpt-4o-mini-tts".
	Speech string

	// Voice is the synthesis voice. Default: "ash".
	Voice string
}

func (m *Models) applyDefaults() {
	if m.Chat == "" {
		m.Chat = "gpt-4o"
	}
	if m.Transcribe == "" {
		m.Transcribe = "gpt-4o-transcribe"
	}
	if m.Speech == "" {
		m.Speech = "gpt-4o-mini-tts"
	}
	if m.Voice == "" {
		m.Voice = "ash"
	}
}

// Client implements provider.LanguageModel, provider.Transcriber, and
// provider.Synthesizer using the OpenAI API.
type Client struct {
	client oai.Client
	models Models
}

// config holds optional configuration for the client.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Client.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a Client. apiKey must not be empty; zero-valued Models fields
// fall back to their defaults.
func New(apiKey string, models Models, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	models.applyDefaults()

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Client{client: oai.NewClient(reqOpts...), models: models}, nil
}

// Summarize implements provider.LanguageModel.
func (c *Client) Summarize(ctx context.Context, query string, lang types.Language) (string, error) {
	return c.complete(ctx, prompt.SummarySystem(lang), prompt.SummaryUser(query, lang))
}

// Answer implements provider.LanguageModel.
func (c *Client) Answer(ctx context.Context, question string, lang types.Language, doc *summary.Document, history string) (string, error) {
	return c.complete(ctx, prompt.QASystem(lang), prompt.QAUser(question, doc, history, lang))
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.models.Chat),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe implements provider.Transcriber.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %q: %v", provider.ErrTranscription, audioPath, err)
	}
	defer f.Close()

	resp, err := c.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model: oai.AudioModel(c.models.Transcribe),
		File:  f,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrTranscription, err)
	}
	return resp.Text, nil
}

// Synthesize implements provider.Synthesizer.
func (c *Client) Synthesize(ctx context.Context, text string, lang types.Language) ([]byte, error) {
	resp, err := c.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(c.models.Speech),
		Voice:          oai.AudioSpeechNewParamsVoice(c.models.Voice),
		Input:          text,
		Instructions:   param.NewOpt(prompt.SpeechInstructions(lang)),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrSynthesis, err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %v", provider.ErrSynthesis, err)
	}
	return audio, nil
}

// Compile-time interface checks.
var (
	_ provider.LanguageModel = (*Client)(nil)
	_ provider.Transcriber   = (*Client)(nil)
	_ provider.Synthesizer   = (*Client)(nil)
)
