package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nadzzz/saturday/internal/config"
	"github.com/nadzzz/saturday/internal/inference"
	"github.com/nadzzz/saturday/internal/message"
)

var testModels = inference.Models{Text: "gpt-4o-mini", Speech: "whisper-1"}

func newTestCapability(t *testing.T, h http.HandlerFunc) *Capability {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, testModels, 5*time.Second)
}

func TestGenerate_UsesJSONModeAndReturnsContent(t *testing.T) {
	var gotPath string
	var gotReq struct {
		Model          string                `json:"model"`
		Messages       []message.ChatMessage `json:"messages"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"action\":\"open_tab\",\"value\":\"https://youtube.com\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
	})

	out, err := c.Generate(context.Background(), []message.ChatMessage{
		{Role: message.RoleSystem, Content: "sys"},
		{Role: message.RoleUser, Content: "open youtube.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"action":"open_tab","value":"https://youtube.com"}` {
		t.Errorf("unexpected output %q", out)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model %q", gotReq.Model)
	}
	if gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %q", gotReq.ResponseFormat.Type)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "open youtube.com" {
		t.Errorf("unexpected messages %+v", gotReq.Messages)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	})

	if _, err := c.Generate(context.Background(), nil); !errors.Is(err, inference.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerate_EmptyContentIsPassedThrough(t *testing.T) {
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}]}`)
	})

	out, err := c.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestGenerate_APIError(t *testing.T) {
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
	})

	_, err := c.Generate(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestTranscribe_VerboseJSON(t *testing.T) {
	var gotPath, gotModel, gotFilename string
	var gotAudio []byte
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		f, hdr, err := r.FormFile("file")
		if err == nil {
			gotFilename = hdr.Filename
			gotAudio, _ = io.ReadAll(f)
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"task":"transcribe","language":"english","duration":1.5,"text":"search for go tutorials"}`)
	})

	tr, err := c.Transcribe(context.Background(), []byte("OggS-fake"), "audio/ogg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/audio/transcriptions" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotModel != "whisper-1" {
		t.Errorf("unexpected model %q", gotModel)
	}
	if gotFilename != "audio.ogg" {
		t.Errorf("unexpected filename %q", gotFilename)
	}
	if string(gotAudio) != "OggS-fake" {
		t.Errorf("audio modified in transit: %q", gotAudio)
	}
	if tr.Text != "search for go tutorials" || tr.Language != "en" || tr.Duration != 1.5 || tr.WordCount != 4 {
		t.Errorf("unexpected transcript %+v", tr)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{"english": "en", "FR": "fr", "klingon": "klingon", "": ""}
	for in, want := range cases {
		if got := normalizeLanguage(in); got != want {
			t.Errorf("normalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtFromContentType(t *testing.T) {
	cases := map[string]string{"audio/webm;codecs=opus": ".webm", "audio/mpeg": ".mp3", "": ".wav"}
	for in, want := range cases {
		if got := extFromContentType(in); got != want {
			t.Errorf("extFromContentType(%q) = %q, want %q", in, got, want)
		}
	}
}
