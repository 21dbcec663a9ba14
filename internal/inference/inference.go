// Package inference defines the boundary to the hosted model runtime.
//
// A Capability runs two kinds of model: a text-generation model fed a
// conversation, and a speech-to-text model fed raw audio. Saturday ships
// with three backends: Workers AI (Cloudflare, the default), OpenAI, and
// Local (self-hosted via Ollama/whisper.cpp).
package inference

import (
	"context"
	"errors"

	"github.com/nadzzz/saturday/internal/message"
)

// ErrEmptyResponse is returned when the provider reply carries no answer
// field at all. An answer that is an empty string is returned as-is.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Capability is the interface for text generation and audio transcription.
type Capability interface {
	// Name returns the backend identifier (e.g., "workersai", "openai", "local").
	Name() string

	// Generate runs the text model over messages and returns its raw output.
	// The output is not parsed or validated.
	Generate(ctx context.Context, messages []message.ChatMessage) (string, error)

	// Transcribe runs the speech model over audio. contentType is the MIME
	// type reported by the caller and may be empty.
	Transcribe(ctx context.Context, audio []byte, contentType string) (*message.Transcript, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Models names the fixed model identifiers a backend is configured with.
type Models struct {
	Text   string
	Speech string
}
