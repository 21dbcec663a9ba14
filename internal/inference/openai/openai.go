// Package openai implements the inference Capability using OpenAI's APIs.
//
// It uses the Chat Completions API (in JSON object mode) for text generation
// and the Audio Transcription API (Whisper / gpt-4o-transcribe) for
// speech-to-text. BaseURL may point at any OpenAI-compatible gateway.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/saturday/internal/config"
	"github.com/nadzzz/saturday/internal/inference"
	"github.com/nadzzz/saturday/internal/message"
)

// Capability uses the OpenAI SDK for generation and transcription.
type Capability struct {
	client  *goopenai.Client
	models  inference.Models
	timeout time.Duration
}

// New creates a new OpenAI capability from config.
func New(cfg config.OpenAIConfig, models inference.Models, timeout time.Duration) *Capability {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Capability{
		client:  goopenai.NewClientWithConfig(clientCfg),
		models:  models,
		timeout: timeout,
	}
}

// Name returns the backend identifier.
func (c *Capability) Name() string { return "openai" }

// Generate sends the conversation to the Chat Completions API and returns the
// first choice's content.
func (c *Capability) Generate(ctx context.Context, messages []message.ChatMessage) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	chat := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chat = append(chat, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    c.models.Text,
		Messages: chat,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", inference.ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("openai generation complete", "model", c.models.Text, "response_length", len(content),
		"total_tokens", resp.Usage.TotalTokens)
	return content, nil
}

// Transcribe sends audio to the OpenAI Transcription API.
func (c *Capability) Transcribe(ctx context.Context, audio []byte, contentType string) (*message.Transcript, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.models.Speech,
		FilePath: "audio" + extFromContentType(contentType),
		Reader:   bytes.NewReader(audio),
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}

	// OpenAI returns full language names ("english"); normalise to ISO-639-1.
	lang := normalizeLanguage(resp.Language)

	slog.Debug("openai transcription complete", "text_length", len(resp.Text), "language", lang)
	return &message.Transcript{
		Text:      resp.Text,
		Language:  lang,
		Duration:  resp.Duration,
		WordCount: len(strings.Fields(resp.Text)),
	}, nil
}

// Close is a no-op for the OpenAI capability.
func (c *Capability) Close() error { return nil }

// --- Internal helpers ---

func (c *Capability) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func extFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"), strings.Contains(ct, "mp4"):
		return ".m4a"
	default:
		return ".wav"
	}
}

// normalizeLanguage converts full language names (as returned by OpenAI) to ISO-639-1 codes.
func normalizeLanguage(lang string) string {
	if len(lang) == 2 {
		return strings.ToLower(lang)
	}
	known := map[string]string{
		"english":    "en",
		"french":     "fr",
		"spanish":    "es",
		"german":     "de",
		"italian":    "it",
		"portuguese": "pt",
		"dutch":      "nl",
		"polish":     "pl",
		"russian":    "ru",
		"japanese":   "ja",
		"korean":     "ko",
		"chinese":    "zh",
		"arabic":     "ar",
		"hindi":      "hi",
		"turkish":    "tr",
	}
	if code, ok := known[strings.ToLower(lang)]; ok {
		return code
	}
	return strings.ToLower(lang)
}
