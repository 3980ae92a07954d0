package story

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the pipeline, the regeneration path and the
// HTTP layer. Callers match them with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNoProviderSucceeded = errors.New("no provider succeeded")
	ErrNoSentences         = errors.New("narrative has no sentences")
	ErrPersistence         = errors.New("persistence failed")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
)

// ErrorKind classifies a failed provider call.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindAuth       ErrorKind = "auth"
	KindQuota      ErrorKind = "quota"
	KindNetwork    ErrorKind = "network"
	KindBadRequest ErrorKind = "bad_request"
	KindParse      ErrorKind = "parse"
	KindEmpty      ErrorKind = "empty"
	KindUnknown    ErrorKind = "unknown"
)

// ProviderError is a failed remote call to a content provider.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ParseError is a provider reply that could not be turned into sentences.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %s returned unparseable output: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KindOf reports the ErrorKind carried by err, if any.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return KindParse
	}
	var prov *ProviderError
	if errors.As(err, &prov) {
		return prov.Kind
	}
	return KindUnknown
}

// GenerationAttempt records one provider call for telemetry.
type GenerationAttempt struct {
	Stage     string    `json:"stage"`
	Index     int       `json:"index,omitempty"`
	Provider  string    `json:"provider"`
	Succeeded bool      `json:"succeeded"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
}

// Outcome is "success" or the error kind, used as a metric dimension.
func (a GenerationAttempt) Outcome() string {
	if a.Succeeded {
		return "success"
	}
	return string(a.ErrorKind)
}
