package annoterr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the annotation taxonomy
var (
	ErrModelNotFound = errors.New("model not found")
	ErrModelCorrupt  = errors.New("model corrupt")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAnnotation    = errors.New("annotation failed")
)

// ModelNotFoundError reports a model resource the locator could not resolve.
type ModelNotFoundError struct {
	Model string // name-version
	Err   error
}

func (e *ModelNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s not found: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("model %s not found", e.Model)
}

func (e *ModelNotFoundError) Unwrap() error { return e.Err }

func (e *ModelNotFoundError) Is(target error) bool { return target == ErrModelNotFound }

// ModelCorruptError reports a located model that could not be parsed.
type ModelCorruptError struct {
	Model  string
	Reason string
	Err    error
}

func (e *ModelCorruptError) Error() string {
	msg := fmt.Sprintf("model %s corrupt", e.Model)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelCorruptError) Unwrap() error { return e.Err }

func (e *ModelCorruptError) Is(target error) bool { return target == ErrModelCorrupt }

// InvalidInputError reports a caller precondition violation.
type InvalidInputError struct {
	Op     string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Op, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// AnnotationError reports a stage failure while annotating one sentence.
// Sentence is the zero-based index within the segmented text, or -1 when
// the failure happened during segmentation.
type AnnotationError struct {
	Sentence int
	Stage    string
	Err      error
}

func (e *AnnotationError) Error() string {
	if e.Sentence < 0 {
		return fmt.Sprintf("annotate: stage %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("annotate: sentence %d: stage %s: %v", e.Sentence, e.Stage, e.Err)
}

func (e *AnnotationError) Unwrap() error { return e.Err }

func (e *AnnotationError) Is(target error) bool { return target == ErrAnnotation }

// ConstructionError reports a pipeline that could not be built because
// one of its stage models failed to load.
type ConstructionError struct {
	Stage string
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct pipeline: stage %s: %v", e.Stage, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }
