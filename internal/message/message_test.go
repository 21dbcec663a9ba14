package message

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHasCommand(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"", false},
		{"open youtube.com", true},
		{"   ", true},
	}

	for _, tt := range tests {
		r := &CommandRequest{Command: tt.command}
		if got := r.HasCommand(); got != tt.want {
			t.Errorf("HasCommand(%q) = %v, want %v", tt.command, got, tt.want)
		}
	}
}

func TestTranscript_KeepsUnknownFields(t *testing.T) {
	in := `{"text":"open youtube","word_count":2,"transcription_info":{"language":"en","duration":1.2},"segments":[{"id":0}]}`

	var tr Transcript
	if err := json.Unmarshal([]byte(in), &tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Text != "open youtube" || tr.WordCount != 2 {
		t.Errorf("known fields not decoded: %+v", tr)
	}
	if len(tr.Extra) != 2 || tr.Extra["segments"] == nil || tr.Extra["transcription_info"] == nil {
		t.Fatalf("unexpected extra fields %v", tr.Extra)
	}

	out, err := json.Marshal(&tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"text":"open youtube"`, `"word_count":2`, `"transcription_info":{"language":"en","duration":1.2}`, `"segments":[{"id":0}]`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestTranscript_KnownFieldWinsOverExtra(t *testing.T) {
	tr := Transcript{Text: "real", Extra: map[string]json.RawMessage{"text": json.RawMessage(`"shadow"`)}}

	out, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), `"text":"real"`) || strings.Contains(string(out), "shadow") {
		t.Errorf("unexpected encoding %s", out)
	}
}

func TestTranscript_NoExtraMatchesPlainEncoding(t *testing.T) {
	out, err := json.Marshal(Transcript{Text: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"text":"hi"}` {
		t.Errorf("unexpected encoding %s", out)
	}
}
