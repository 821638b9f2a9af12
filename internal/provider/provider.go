// Package provider contains the adapters for external image-transformation
// services. Each adapter accepts an image plus typed step parameters and
// returns the transformed image, or a classified provider error.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// ErrorKind classifies a provider failure. The orchestrator treats every
// kind identically (the failure is captured into the step's result); the
// kinds exist for the call log and for operators reading admin stats.
type ErrorKind string

const (
	KindQuotaExceeded        ErrorKind = "quota_exceeded"
	KindRateLimited          ErrorKind = "rate_limited"
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindInvalidModelOutput   ErrorKind = "invalid_model_output"
	KindTimeout              ErrorKind = "timeout"
)

// Error is the typed error every adapter returns. Callers that care about
// the class use errors.As; everyone else just reads Error().
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// NewError builds a classified provider error.
func NewError(kind ErrorKind, providerName, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: providerName, Message: message, cause: cause}
}

// KindOf extracts the error kind when err is (or wraps) a provider Error.
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// Adapter is the boundary abstraction over one transformation family.
// Implementations must be safe for concurrent use — one adapter instance
// serves all requests.
type Adapter interface {
	// Transform submits the image with the step's parameters and returns the
	// transformed image. The call is bounded by the adapter's timeout; a
	// deadline is surfaced as a Timeout error, never a hang.
	Transform(ctx context.Context, image model.ImageRef, params model.StepParams) (model.ImageRef, error)

	// Name returns a human-readable name for the call log.
	Name() string
}

// Registry maps each step family to its adapter. The orchestrator looks
// adapters up here; a missing family is a configuration bug surfaced as a
// failed step, not a crash.
type Registry map[model.StepType]Adapter
