// Package http implements the HTTP transport for saturday.
//
// It exposes exactly two endpoints, POST /command and POST /transcribe,
// plus the swagger UI. Any other method on a known path is answered with
// 405 and any unknown path with 404. Failure bodies are plain text so the
// browser extension can show them as-is.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/saturday/docs"
	"github.com/nadzzz/saturday/internal/config"
	"github.com/nadzzz/saturday/internal/dispatch"
	"github.com/nadzzz/saturday/internal/message"
	"github.com/nadzzz/saturday/internal/transport"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-Id"

const notFoundBody = "Not Found. Valid endpoints are: POST /command, POST /transcribe"

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port           int
	maxBodyBytes   int64
	allowedOrigins []string

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP transport from config.
func New(cfg config.HTTPConfig) *Transport {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Transport{
		port:           cfg.Port,
		maxBodyBytes:   cfg.MaxBodyBytes,
		allowedOrigins: origins,
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler builds the router serving svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: t.allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	// POST /command: free-text command in, action descriptor out.
	r.Post("/command", func(w http.ResponseWriter, r *http.Request) {
		t.handleCommand(w, r, svc)
	})

	// POST /transcribe: raw audio in, transcript out.
	r.Post("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		t.handleTranscribe(w, r, svc)
	})

	// Swagger UI: serves the generated OpenAPI docs.
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)
	return r
}

// Listen starts the HTTP server and serves requests with svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleCommand processes a POST /command request.
//
// @Summary     Interpret a natural-language command
// @Description Builds the shared Saturday conversation from the command (and optional page context),
// @Description runs the text-generation model and returns its output unmodified. The output is expected
// @Description to be an {action, value} JSON object but is only validated when strict mode is enabled.
// @Tags        command
// @Accept      json
// @Produce     json
// @Param       request  body      message.CommandRequest  true  "Command and optional page context"
// @Success     200      {object}  action.Descriptor       "Raw action descriptor from the model"
// @Failure     400      {string}  string                  "Missing command or invalid JSON body"
// @Failure     405      {string}  string                  "Method not allowed"
// @Failure     500      {string}  string                  "Inference error"
// @Failure     502      {string}  string                  "Invalid action descriptor (strict mode)"
// @Router      /command [post]
func (t *Transport) handleCommand(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	var req message.CommandRequest
	if err := json.NewDecoder(t.limitBody(w, r)).Decode(&req); err != nil {
		if tooLarge(err) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, dispatch.BadRequest(fmt.Errorf("invalid JSON body: %w", err)))
		return
	}

	out, err := svc.Command(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, out)
}

// handleTranscribe processes a POST /transcribe request.
//
// @Summary     Transcribe audio
// @Description Reads the raw request body and forwards it unmodified to the speech-to-text model.
// @Description The body is not validated; empty or non-audio payloads only fail if the model rejects them.
// @Tags        transcribe
// @Accept      audio/wav
// @Accept      audio/webm
// @Accept      audio/ogg
// @Accept      application/octet-stream
// @Produce     json
// @Param       audio  body      string              true  "Raw audio bytes"
// @Success     200    {object}  message.Transcript  "Transcript"
// @Failure     405    {string}  string              "Method not allowed"
// @Failure     413    {string}  string              "Body exceeds the transport limit"
// @Failure     500    {string}  string              "Body read or transcription error"
// @Router      /transcribe [post]
func (t *Transport) handleTranscribe(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	audio, err := io.ReadAll(t.limitBody(w, r))
	if err != nil {
		if tooLarge(err) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, dispatch.ReadFailed(err))
		return
	}

	tr, err := svc.Transcribe(r.Context(), audio, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tr)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
	return nil
}

// --- Internal helpers ---

func (t *Transport) limitBody(w http.ResponseWriter, r *http.Request) io.Reader {
	if t.maxBodyBytes <= 0 {
		return r.Body
	}
	return http.MaxBytesReader(w, r.Body, t.maxBodyBytes)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := dispatch.StatusOf(err)
	if dispatch.IsCanceled(err) {
		slog.Info("client went away before the model answered", "path", r.URL.Path)
	}
	http.Error(w, err.Error(), status)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	allow := http.MethodPost
	if strings.HasPrefix(r.URL.Path, "/swagger/") {
		allow = http.MethodGet
	}
	w.Header().Set("Allow", allow)
	http.Error(w, "Method Not Allowed. Please use "+allow+".", http.StatusMethodNotAllowed)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, notFoundBody, http.StatusNotFound)
}

// requestLogger assigns a request id, attaches a request-scoped logger to the
// context and logs the outcome of every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := slog.With("request_id", id, "method", r.Method, "path", r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(dispatch.WithLogger(r.Context(), logger)))

		logger.Info("request complete",
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
