package aiclient

import (
	"errors"
	"testing"
)

func TestClassify_Transient(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantErrIs  error
	}{
		{"server error", 500, ErrTransient},
		{"rate limited", 429, ErrTransient},
		{"network error", 0, ErrTransient},
		{"bad request", 400, ErrPermanent},
		{"unauthorized", 401, ErrPermanent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify("synthesize", tc.statusCode, errors.New("boom"))
			if !errors.Is(err, tc.wantErrIs) {
				t.Errorf("classify(%d) = %v, want errors.Is match for %v", tc.statusCode, err, tc.wantErrIs)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tc.statusCode {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tc.statusCode)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	transientErr := classify("transcribe", 503, errors.New("unavailable"))
	if !IsTransient(transientErr) {
		t.Error("expected transient error to be retryable")
	}

	permanentErr := classify("transcribe", 400, errors.New("bad request"))
	if IsTransient(permanentErr) {
		t.Error("expected permanent error to not be retryable")
	}
}
