package main

import (
	"errors"
	"fmt"
)

// Stage failure causes the rest of the pipeline branches on.
var (
	ErrMalformedModelOutput    = errors.New("malformed model output")
	ErrResearchSynthesisFailed = errors.New("research synthesis failed")
	ErrCompositionIncomplete   = errors.New("composition incomplete")
	ErrRevisionOutOfScope      = errors.New("revision touched text outside the target span")
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// StageError wraps a failure with the name of the pipeline stage that
// produced it, so a run always reports which stage stopped.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
