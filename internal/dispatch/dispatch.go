// Package dispatch implements the two request pipelines of saturday.
//
// Command turns a free-text command (plus optional page context) into an
// action descriptor by running the shared conversation through the text
// model. Transcribe relays audio to the speech model. Each call makes
// exactly one inference call and is never retried; every failure comes back
// as an *Error whose Kind decides the status the transport reports.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/saturday/internal/action"
	"github.com/nadzzz/saturday/internal/inference"
	"github.com/nadzzz/saturday/internal/message"
	"github.com/nadzzz/saturday/internal/prompt"
)

// Options tunes dispatcher behaviour.
type Options struct {
	// StrictActions rejects model output that is not a valid action
	// descriptor. When false the output is forwarded untouched.
	StrictActions bool
}

// Dispatcher is the central pipeline engine. It holds no per-request state
// and is safe for concurrent use.
type Dispatcher struct {
	capability inference.Capability
	opts       Options
}

// New creates a new Dispatcher backed by capability.
func New(capability inference.Capability, opts Options) *Dispatcher {
	return &Dispatcher{
		capability: capability,
		opts:       opts,
	}
}

// Command interprets req and returns the model's raw action descriptor text.
//
// The returned text is expected, but not guaranteed, to be a JSON action
// descriptor unless StrictActions is set. Callers must parse it defensively.
func (d *Dispatcher) Command(ctx context.Context, req *message.CommandRequest) (string, error) {
	if req == nil || !req.HasCommand() {
		return "", &Error{Kind: KindBadRequest, Err: ErrMissingCommand}
	}

	start := time.Now()
	logger := loggerFrom(ctx).With("backend", d.capability.Name())
	logger.Info("command started", "command_length", len(req.Command), "has_context", req.Context != "")

	conversation := prompt.BuildConversation(req.Command, req.Context)
	out, err := d.capability.Generate(ctx, conversation)
	if err != nil {
		logger.Error("inference failed", "error", err)
		return "", &Error{Kind: KindInference, Err: err}
	}

	if d.opts.StrictActions {
		desc, err := action.Parse(out)
		if err != nil {
			logger.Warn("model returned an invalid action descriptor", "error", err, "output", truncate(out, 200))
			return "", &Error{Kind: KindInvalidOutput, Err: err}
		}
		logger = logger.With("action", desc.Action)
	}

	logger.Info("command complete", "duration", time.Since(start), "response_length", len(out))
	return out, nil
}

// Transcribe relays audio to the speech model. The payload is not inspected:
// empty or non-audio bodies are forwarded and only fail if the model rejects
// them.
func (d *Dispatcher) Transcribe(ctx context.Context, audio []byte, contentType string) (*message.Transcript, error) {
	start := time.Now()
	logger := loggerFrom(ctx).With("backend", d.capability.Name())
	logger.Info("transcription started", "content_type", contentType, "bytes", len(audio))

	tr, err := d.capability.Transcribe(ctx, audio, contentType)
	if err != nil {
		logger.Error("transcription failed", "error", err)
		return nil, &Error{Kind: KindTranscription, Err: err}
	}
	if tr == nil {
		tr = &message.Transcript{}
	}

	logger.Info("transcription complete", "duration", time.Since(start), "text_length", len(tr.Text))
	return tr, nil
}

// ReadFailed wraps an error raised while reading an audio payload, so that
// body-read failures and inference failures surface the same way.
func ReadFailed(err error) error {
	return &Error{Kind: KindTranscription, Err: fmt.Errorf("reading audio: %w", err)}
}

// Close releases the underlying capability.
func (d *Dispatcher) Close() error {
	return d.capability.Close()
}

// --- logging helpers ---

type loggerKey struct{}

// WithLogger returns a context carrying a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsCanceled reports whether err stems from the caller going away rather
// than from the model.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
