// Package action defines the closed vocabulary of browser/assistant actions
// the interpreter asks the model to choose from.
//
// The interpreter never executes actions itself. A Descriptor is what the
// caller (the browser extension) receives and acts upon.
package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is a single action tag.
type Action string

const (
	OpenTab           Action = "open_tab"
	SearchGoogle      Action = "search_google"
	DownloadFile      Action = "download_file"
	CopyText          Action = "copy_text"
	TypeText          Action = "type_text"
	ReadPageContent   Action = "read_page_content"
	FindKeywordOnPage Action = "find_keyword_on_page"
	GetWeather        Action = "get_weather"
	GetTime           Action = "get_time"
	AddTodo           Action = "add_todo"
	GetTasks          Action = "get_tasks"
	ExplainPage       Action = "explain_page"
	AnswerGeneral     Action = "answer_general"
)

// ContextRequired is the value the model uses when an action needs the page
// context the caller holds.
const ContextRequired = "context_required"

// vocabulary is ordered; the system prompt enumerates it in this order.
var vocabulary = [...]Action{
	OpenTab,
	SearchGoogle,
	DownloadFile,
	CopyText,
	TypeText,
	ReadPageContent,
	FindKeywordOnPage,
	GetWeather,
	GetTime,
	AddTodo,
	GetTasks,
	ExplainPage,
	AnswerGeneral,
}

// Vocabulary returns a copy of the permitted actions in canonical order.
func Vocabulary() []Action {
	out := make([]Action, len(vocabulary))
	copy(out, vocabulary[:])
	return out
}

// Valid reports whether a is part of the vocabulary.
func (a Action) Valid() bool {
	for _, v := range vocabulary {
		if v == a {
			return true
		}
	}
	return false
}

// Quoted renders the vocabulary as a comma-separated list of double-quoted
// tags, e.g. `"open_tab", "search_google"`.
func Quoted() string {
	parts := make([]string, len(vocabulary))
	for i, a := range vocabulary {
		parts[i] = `"` + string(a) + `"`
	}
	return strings.Join(parts, ", ")
}

// Descriptor is the {action, value} object the model is instructed to emit.
type Descriptor struct {
	Action Action  `json:"action"`
	Value  *string `json:"value"`
}

// Parse decodes raw model output into a Descriptor and checks the action tag
// against the vocabulary. Surrounding whitespace is tolerated; any other text
// around the JSON object is not.
func Parse(raw string) (*Descriptor, error) {
	var d Descriptor
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding descriptor: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after descriptor")
	}
	if d.Action == "" {
		return nil, fmt.Errorf("descriptor has no action")
	}
	if !d.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", d.Action)
	}
	return &d, nil
}
