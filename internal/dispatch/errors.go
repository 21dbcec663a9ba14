package dispatch

import (
	"errors"
	"net/http"
)

// ErrMissingCommand is reported when a command request has no command.
var ErrMissingCommand = errors.New(`JSON body must include a "command" property.`)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindBadRequest is a client error: a required input is missing or malformed.
	KindBadRequest Kind = iota + 1
	// KindInference is a failed text-generation call.
	KindInference
	// KindTranscription is a failed body read or speech-to-text call.
	KindTranscription
	// KindInvalidOutput is model output rejected in strict mode.
	KindInvalidOutput
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindInference:
		return "inference_error"
	case KindTranscription:
		return "transcription_error"
	case KindInvalidOutput:
		return "invalid_output"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInference:
		return "Error processing AI command: " + e.Err.Error()
	case KindTranscription:
		return "Error processing transcription: " + e.Err.Error()
	case KindInvalidOutput:
		return "Model returned an invalid action descriptor: " + e.Err.Error()
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindInvalidOutput:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest wraps err as a client error.
func BadRequest(err error) error {
	return &Error{Kind: KindBadRequest, Err: err}
}

// StatusOf returns the HTTP status for any error; unclassified errors are 500.
func StatusOf(err error) int {
	var de *Error
	if errors.As(err, &de) {
		return de.Status()
	}
	return http.StatusInternalServerError
}
