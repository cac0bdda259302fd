package models

import (
	"errors"
	"fmt"
)

// ExtractionError means the document could not be parsed at all (corrupt PDF,
// zero pages, unsupported encoding). It is fatal to the run: there are no
// pages to continue with.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ModelCallError wraps a failed model invocation. These are retryable at the
// call site; once retries are exhausted they become a per-page stage failure.
type ModelCallError struct {
	CallType string
	Model    string
	Err      error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call %s (%s) failed: %v", e.CallType, e.Model, e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

// SchemaValidationError means the model returned a payload that does not
// match the expected shape. Non-retryable; nothing is persisted for the page.
type SchemaValidationError struct {
	CallType string
	Detail   string
	Err      error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %s", e.CallType, e.Detail)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// DependencyError is raised before any execution begins when a requested
// stage needs a prerequisite whose output is absent and whose stage cannot
// be run.
type DependencyError struct {
	Stage      string
	Dependency string
	Reason     string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s requires %s: %s", e.Stage, e.Dependency, e.Reason)
}

// IsRetryable reports whether err may succeed on a retry. Schema validation
// failures are final; everything else wrapped in ModelCallError is retryable.
func IsRetryable(err error) bool {
	var schemaErr *SchemaValidationError
	if errors.As(err, &schemaErr) {
		return false
	}
	var callErr *ModelCallError
	return errors.As(err, &callErr)
}
