// Package local implements the inference Capability using self-hosted models.
//
// It supports any Whisper-compatible transcription endpoint (e.g., whisper.cpp
// server, faster-whisper, whisper-asr-webservice) and either Ollama's native
// /api/generate or any OpenAI-compatible chat endpoint (e.g., Ollama's /v1,
// vLLM, llama.cpp server).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nadzzz/saturday/internal/config"
	"github.com/nadzzz/saturday/internal/inference"
	"github.com/nadzzz/saturday/internal/message"
)

// Capability uses self-hosted models for generation and transcription.
type Capability struct {
	whisperEndpoint string
	whisperType     string // "openai" or "asr"
	llmEndpoint     string
	models          inference.Models
	defaultLanguage string
	timeout         time.Duration
	client          *http.Client
}

// New creates a new local capability from config.
func New(cfg config.LocalConfig, models inference.Models, timeout time.Duration) *Capability {
	wt := cfg.WhisperType
	if wt == "" {
		wt = "openai"
	}
	if models.Text == "" {
		models.Text = "llama3"
	}
	return &Capability{
		whisperEndpoint: cfg.WhisperEndpoint,
		whisperType:     wt,
		llmEndpoint:     cfg.LLMEndpoint,
		models:          models,
		defaultLanguage: cfg.Language,
		timeout:         timeout,
		client:          &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Capability) Name() string { return "local" }

// Generate sends the conversation to the local LLM endpoint.
// An endpoint ending in /api/generate is spoken to in Ollama's native format;
// anything else is treated as an OpenAI-compatible chat completions endpoint.
func (c *Capability) Generate(ctx context.Context, messages []message.ChatMessage) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reqBody := map[string]any{
		"model":       c.models.Text,
		"messages":    messages,
		"temperature": 0.2,
		"stream":      false,
	}
	if strings.HasSuffix(c.llmEndpoint, "/api/generate") {
		system, prompt := splitConversation(messages)
		reqBody = map[string]any{
			"model":  c.models.Text,
			"system": system,
			"prompt": prompt,
			"stream": false,
			"format": "json",
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.llmEndpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("local LLM request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("local LLM failed (status %d): %s", resp.StatusCode, respBody)
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading LLM response: %w", err)
	}

	content, ok := extractContent(respData)
	if !ok {
		return "", inference.ErrEmptyResponse
	}

	slog.Debug("local generation complete", "model", c.models.Text, "response_length", len(content))
	return content, nil
}

// Transcribe sends audio to the local Whisper-compatible endpoint.
// Supports two flavors:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
func (c *Capability) Transcribe(ctx context.Context, audio []byte, contentType string) (*message.Transcript, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	switch c.whisperType {
	case "asr":
		return c.transcribeASR(ctx, audio, contentType)
	default:
		return c.transcribeOpenAI(ctx, audio, contentType)
	}
}

// transcribeASR handles the ahmetoner/whisper-asr-webservice format.
// API: POST /asr?task=transcribe&language=en&output=json
// Body: multipart/form-data with field "audio_file"
func (c *Capability) transcribeASR(ctx context.Context, audio []byte, contentType string) (*message.Transcript, error) {
	body, formType, err := audioForm("audio_file", audio, contentType, nil)
	if err != nil {
		return nil, err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if c.defaultLanguage != "" {
		q.Set("language", c.defaultLanguage)
	}

	reqURL := c.whisperEndpoint + "?" + q.Encode()
	slog.Debug("whisper-asr request", "url", reqURL)
	return c.postTranscription(ctx, reqURL, formType, body)
}

// transcribeOpenAI handles OpenAI-compatible whisper endpoints.
func (c *Capability) transcribeOpenAI(ctx context.Context, audio []byte, contentType string) (*message.Transcript, error) {
	fields := map[string]string{"response_format": "verbose_json"}
	if c.models.Speech != "" {
		fields["model"] = c.models.Speech
	}
	if c.defaultLanguage != "" {
		fields["language"] = c.defaultLanguage
	}

	body, formType, err := audioForm("file", audio, contentType, fields)
	if err != nil {
		return nil, err
	}
	return c.postTranscription(ctx, c.whisperEndpoint, formType, body)
}

func (c *Capability) postTranscription(ctx context.Context, endpoint, formType string, body *bytes.Buffer) (*message.Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", formType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("local transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	slog.Debug("local transcription complete", "text_length", len(text), "language", result.Language)
	return &message.Transcript{
		Text:      text,
		Language:  result.Language,
		Duration:  result.Duration,
		WordCount: len(strings.Fields(text)),
	}, nil
}

// Close is a no-op for the local capability.
func (c *Capability) Close() error { return nil }

// --- Internal helpers ---

func (c *Capability) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// audioForm builds a multipart body with the audio under fileField plus any
// extra form fields.
func audioForm(fileField string, audio []byte, contentType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fileField, "audio"+extFromContentType(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// splitConversation flattens a conversation into Ollama's system/prompt pair.
func splitConversation(messages []message.ChatMessage) (system, prompt string) {
	var sys, user []string
	for _, m := range messages {
		if m.Role == message.RoleSystem {
			sys = append(sys, m.Content)
		} else {
			user = append(user, m.Content)
		}
	}
	return strings.Join(sys, "\n\n"), strings.Join(user, "\n\n")
}

// extractContent reports false when the body carries no answer at all. An
// empty answer is still an answer.
func extractContent(data []byte) (string, bool) {
	// Try OpenAI-compatible format: {"choices": [{"message": {"content": "..."}}]}
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chatResp); err == nil && len(chatResp.Choices) > 0 {
		return chatResp.Choices[0].Message.Content, true
	}

	// Try Ollama format: {"response": "..."}
	var ollamaResp struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(data, &ollamaResp); err == nil && ollamaResp.Response != nil {
		return *ollamaResp.Response, true
	}

	raw := strings.TrimSpace(string(data))
	return raw, raw != ""
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
	default:
		return ".wav"
	}
}
