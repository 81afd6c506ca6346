package extraction

import (
	"errors"
	"fmt"
)

// ErrEmptyResult reports that no field could be recovered from a document.
// The orchestrator never returns it; it is logged and replaced by an all-default record.
var ErrEmptyResult = errors.New("no recoverable fields")

var errNoClient = errors.New("no model client configured")

// ValidationError is returned for documents that are rejected before extraction starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError wraps a failed call to the generative model.
// StatusCode is zero for transport failures.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ParseError reports a model response that could not be decoded.
type ParseError struct {
	Stage string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse %s", e.Stage)
	}
	return fmt.Sprintf("parse %s: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
