package types

import (
	"errors"
	"fmt"
)

// ErrEmptyResult means the model call succeeded but returned no usable
// text. Kept distinct from UpstreamError so callers can tell "service
// broken" apart from "service returned nothing".
var ErrEmptyResult = errors.New("model returned no text")

// ErrNoImageData means an image call returned a well-formed response
// with no inline payload in it.
var ErrNoImageData = errors.New("no image data in response")

// ValidationError is bad input, rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UpstreamError wraps a failed external-model call with the pipeline
// stage it happened in.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream call failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
