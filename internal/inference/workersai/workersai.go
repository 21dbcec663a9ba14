// Package workersai implements the inference Capability on Cloudflare
// Workers AI, using its REST API.
//
// Both models are invoked through the same endpoint:
//
//	POST {base}/accounts/{account_id}/ai/run/{model}
//
// Text generation takes a JSON body {"messages": [...]} and answers with
// {"result": {"response": "..."}}. Whisper takes the raw audio bytes as the
// body and answers with {"result": {"text": "...", "word_count": n, ...}}.
package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/saturday/internal/config"
	"github.com/nadzzz/saturday/internal/inference"
	"github.com/nadzzz/saturday/internal/message"
)

// Capability calls Workers AI models over HTTPS.
type Capability struct {
	baseURL   string
	accountID string
	apiToken  string
	models    inference.Models
	timeout   time.Duration
	client    *http.Client
}

// New creates a Workers AI capability from config.
func New(cfg config.WorkersAIConfig, models inference.Models, timeout time.Duration) *Capability {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.cloudflare.com/client/v4"
	}
	return &Capability{
		baseURL:   base,
		accountID: cfg.AccountID,
		apiToken:  cfg.APIToken,
		models:    models,
		timeout:   timeout,
		client:    &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Capability) Name() string { return "workersai" }

// Generate runs the text-generation model over the conversation.
func (c *Capability) Generate(ctx context.Context, messages []message.ChatMessage) (string, error) {
	body, err := json.Marshal(map[string]any{"messages": messages})
	if err != nil {
		return "", fmt.Errorf("marshalling messages: %w", err)
	}

	var result struct {
		Response *string `json:"response"`
	}
	if err := c.run(ctx, c.models.Text, "application/json", body, &result); err != nil {
		return "", err
	}
	if result.Response == nil {
		return "", inference.ErrEmptyResponse
	}

	slog.Debug("workersai generation complete", "model", c.models.Text, "response_length", len(*result.Response))
	return *result.Response, nil
}

// Transcribe runs the speech-to-text model over the raw audio bytes.
func (c *Capability) Transcribe(ctx context.Context, audio []byte, contentType string) (*message.Transcript, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var result message.Transcript
	if err := c.run(ctx, c.models.Speech, contentType, audio, &result); err != nil {
		return nil, err
	}

	slog.Debug("workersai transcription complete", "model", c.models.Speech, "text_length", len(result.Text), "word_count", result.WordCount)
	return &result, nil
}

// Close is a no-op for Workers AI.
func (c *Capability) Close() error { return nil }

// --- Internal types and helpers ---

type envelope struct {
	Result  json.RawMessage `json:"result"`
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// run posts body to the model endpoint and decodes the envelope's result
// into out.
func (c *Capability) run(ctx context.Context, model, contentType string, body []byte, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.accountID, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("workersai request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("reading workersai response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("workersai %s failed (status %d): %.200s", model, resp.StatusCode, data)
		}
		return fmt.Errorf("decoding workersai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return fmt.Errorf("workersai %s failed (status %d): %s", model, resp.StatusCode, joinErrors(env.Errors))
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decoding workersai result: %w", err)
	}
	return nil
}

func joinErrors(errs []apiError) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = fmt.Sprintf("%d: %s", e.Code, e.Message)
	}
	return strings.Join(msgs, "; ")
}
