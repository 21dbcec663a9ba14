package local

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

var conversation = []message.ChatMessage{
	{Role: message.RoleSystem, Content: "be saturday"},
	{Role: message.RoleUser, Content: "what time is it"},
}

func TestGenerate_OllamaNative(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"model":"llama3","response":"{\"action\":\"get_time\",\"value\":null}","done":true}`)
	}))
	defer srv.Close()

	c := New(config.LocalConfig{LLMEndpoint: srv.URL + "/api/generate"}, inference.Models{Text: "llama3.2:1b"}, time.Second)
	out, err := c.Generate(context.Background(), conversation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"action":"get_time","value":null}` {
		t.Errorf("unexpected output %q", out)
	}
	if got["system"] != "be saturday" || got["prompt"] != "what time is it" {
		t.Errorf("conversation not split into system/prompt: %v", got)
	}
	if got["format"] != "json" || got["model"] != "llama3.2:1b" {
		t.Errorf("unexpected ollama request: %v", got)
	}
}

func TestGenerate_OpenAICompatible(t *testing.T) {
	var got struct {
		Model    string                `json:"model"`
		Messages []message.ChatMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"action\":\"get_weather\",\"value\":\"Paris\"}"}}]}`)
	}))
	defer srv.Close()

	c := New(config.LocalConfig{LLMEndpoint: srv.URL + "/v1/chat/completions"}, inference.Models{}, time.Second)
	out, err := c.Generate(context.Background(), conversation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"action":"get_weather","value":"Paris"}` {
		t.Errorf("unexpected output %q", out)
	}
	if got.Model != "llama3" {
		t.Errorf("expected default model llama3, got %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != message.RoleSystem {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestGenerate_EmptyOllamaResponseIsPassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":"","done":true}`)
	}))
	defer srv.Close()

	c := New(config.LocalConfig{LLMEndpoint: srv.URL + "/api/generate"}, inference.Models{}, time.Second)
	out, err := c.Generate(context.Background(), conversation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestGenerate_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(config.LocalConfig{LLMEndpoint: srv.URL + "/api/generate"}, inference.Models{}, time.Second)
	if _, err := c.Generate(context.Background(), conversation); !errors.Is(err, inference.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(config.LocalConfig{LLMEndpoint: srv.URL + "/api/generate"}, inference.Models{}, time.Second)
	_, err := c.Generate(context.Background(), conversation)
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected upstream message in error, got %v", err)
	}
}

func TestTranscribe_OpenAIFlavor(t *testing.T) {
	var gotFormat, gotModel, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		gotFormat = r.FormValue("response_format")
		gotModel = r.FormValue("model")
		if _, hdr, err := r.FormFile("file"); err == nil {
			gotFilename = hdr.Filename
		}
		_, _ = io.WriteString(w, `{"text":" open the docs ","language":"en","duration":2.5}`)
	}))
	defer srv.Close()

	c := New(config.LocalConfig{WhisperEndpoint: srv.URL}, inference.Models{Speech: "base.en"}, time.Second)
	tr, err := c.Transcribe(context.Background(), []byte("fake"), "audio/webm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFormat != "verbose_json" || gotModel != "base.en" || gotFilename != "audio.webm" {
		t.Errorf("unexpected form: format=%q model=%q filename=%q", gotFormat, gotModel, gotFilename)
	}
	if tr.Text != "open the docs" || tr.WordCount != 3 || tr.Duration != 2.5 {
		t.Errorf("unexpected transcript %+v", tr)
	}
}

func TestTranscribe_ASRFlavor(t *testing.T) {
	var gotQuery string
	var gotField bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			_, _, ferr := r.FormFile("audio_file")
			gotField = ferr == nil
		}
		_, _ = io.WriteString(w, `{"text":"hallo welt","language":"de"}`)
	}))
	defer srv.Close()

	c := New(config.LocalConfig{WhisperEndpoint: srv.URL + "/asr", WhisperType: "asr", Language: "de"}, inference.Models{}, time.Second)
	tr, err := c.Transcribe(context.Background(), []byte("fake"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotField {
		t.Error("audio_file form field missing")
	}
	if !strings.Contains(gotQuery, "task=transcribe") || !strings.Contains(gotQuery, "language=de") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if tr.Text != "hallo welt" || tr.Language != "de" {
		t.Errorf("unexpected transcript %+v", tr)
	}
}

func TestSplitConversation(t *testing.T) {
	sys, prompt := splitConversation(conversation)
	if sys != "be saturday" || prompt != "what time is it" {
		t.Errorf("unexpected split: %q / %q", sys, prompt)
	}
}
