// Package message defines the request-scoped data types flowing through the
// saturday pipeline. None of them outlive a single request.
package message

import "encoding/json"

// Conversation roles understood by every inference backend.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	// Command is the free-text user command (required).
	Command string `json:"command" example:"open youtube.com"`

	// Context is optional page or document text used to ground
	// context-dependent commands such as summarising or keyword search.
	Context string `json:"context,omitempty" example:"Go is an open source programming language..."`
}

// HasCommand reports whether the request carries a non-empty command.
// Whitespace counts as a command and reaches the model untouched.
func (r *CommandRequest) HasCommand() bool {
	return r.Command != ""
}

// ChatMessage is one entry of the conversation sent to the text model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the speech-to-text result returned by POST /transcribe.
// Fields a backend does not report are omitted.
type Transcript struct {
	// Text is the full transcription.
	Text string `json:"text"`

	// Language is the detected or requested language, when known.
	Language string `json:"language,omitempty"`

	// Duration is the audio duration in seconds, when known.
	Duration float64 `json:"duration,omitempty"`

	// WordCount is the number of transcribed words, when known.
	WordCount int `json:"word_count,omitempty"`

	// Words holds per-word timings, when the backend provides them.
	Words []Word `json:"words,omitempty"`

	// VTT is a WebVTT rendering of the transcript, when provided.
	VTT string `json:"vtt,omitempty"`

	// Extra holds any other top-level fields the speech model returned.
	// They are written back out next to the known fields.
	Extra map[string]json.RawMessage `json:"-"`
}

// transcriptFields is the set of keys the named Transcript fields own.
var transcriptFields = []string{"text", "language", "duration", "word_count", "words", "vtt"}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	type plain Transcript
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range transcriptFields {
		delete(all, k)
	}
	p.Extra = nil
	if len(all) > 0 {
		p.Extra = all
	}

	*t = Transcript(p)
	return nil
}

// MarshalJSON encodes the known fields followed by Extra. A known field
// always wins over an Extra entry of the same name.
func (t Transcript) MarshalJSON() ([]byte, error) {
	type plain Transcript
	data, err := json.Marshal(plain(t))
	if err != nil || len(t.Extra) == 0 {
		return data, err
	}

	all := make(map[string]json.RawMessage, len(t.Extra)+len(transcriptFields))
	for k, v := range t.Extra {
		all[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		all[k] = v
	}
	return json.Marshal(all)
}

// Word is a single timed word of a transcript.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
