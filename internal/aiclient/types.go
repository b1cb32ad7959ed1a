// Package aiclient wraps the remote speech/LLM provider (chat completion,
// text-to-speech, and speech-to-text) behind a small typed surface, guarded
// by the resilience package's circuit breakers and retry helper, the way the
// teacher's stt/tts/orchestrator clients wrap their upstreams.
package aiclient

import (
	"errors"
	"fmt"
)

// ErrTransient marks an error as safe to retry: network failures, 5xx
// responses, and 429 rate-limiting.
var ErrTransient = errors.New("aiclient: transient error")

// ErrPermanent marks an error the caller should not retry: any other 4xx.
var ErrPermanent = errors.New("aiclient: permanent error")

// APIError wraps an upstream failure with its classification.
type APIError struct {
	Op         string // "synthesize", "transcribe", "classify", "classify_json"
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aiclient: %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// classify assigns ErrTransient or ErrPermanent to an upstream status code,
// mirroring the teacher's IsRetryableNetworkError but keyed off HTTP status
// rather than error-string sniffing, since go-openai surfaces status codes
// directly.
func classify(op string, statusCode int, err error) error {
	wrapped := ErrPermanent
	if statusCode == 0 || statusCode == 429 || statusCode >= 500 {
		wrapped = ErrTransient
	}
	return &APIError{Op: op, StatusCode: statusCode, Err: fmt.Errorf("%w: %v", wrapped, err)}
}

// Message is a single chat turn, independent of go-openai's wire type so
// callers (classifier, collector) don't import it directly.
type Message struct {
	Role    string
	Content string
}
