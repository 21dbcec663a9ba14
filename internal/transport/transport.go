// Package transport defines the interface for pluggable request transports.
//
// Each transport (HTTP, gRPC) implements this interface and serves the same
// Service. The service doesn't care how requests arrive: both transports
// reach the same prompt and the same inference capability.
package transport

import (
	"context"

	"github.com/nadzzz/saturday/internal/message"
)

// Service is the pipeline every transport exposes. *dispatch.Dispatcher
// implements it.
type Service interface {
	// Command interprets a command and returns the raw action descriptor text.
	Command(ctx context.Context, req *message.CommandRequest) (string, error)

	// Transcribe relays audio to the speech model.
	Transcribe(ctx context.Context, audio []byte, contentType string) (*message.Transcript, error)
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "grpc").
	Name() string

	// Listen starts accepting requests and serves them with svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
