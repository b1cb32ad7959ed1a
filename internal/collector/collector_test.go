package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/tksa/ai-receptionist/internal/aiclient"
)

type stubJSONClient struct {
	result map[string]any
	err    error
}

func (s *stubJSONClient) ClassifyJSON(ctx context.Context, messages []aiclient.Message, temperature float32) (map[string]any, error) {
	return s.result, s.err
}

func TestCollectStep_Incomplete(t *testing.T) {
	client := &stubJSONClient{result: map[string]any{
		"complete":      false,
		"info":          map[string]any{"name": "Marie"},
		"next_question": "Quel est le nom de votre société ?",
	}}
	c := New(client)

	result := c.CollectStep(context.Background(), nil, "Je m'appelle Marie")
	if result.Complete {
		t.Error("expected Complete=false")
	}
	if result.Response != "Quel est le nom de votre société ?" {
		t.Errorf("Response = %q", result.Response)
	}
	if result.Info["name"] != "Marie" {
		t.Errorf("Info[name] = %q, want Marie", result.Info["name"])
	}
}

func TestCollectStep_Complete(t *testing.T) {
	client := &stubJSONClient{result: map[string]any{
		"complete": true,
		"info": map[string]any{
			"name": "Marie", "company": "Acme", "subject": "devis",
		},
	}}
	c := New(client)

	result := c.CollectStep(context.Background(), nil, "c'est pour un devis")
	if !result.Complete {
		t.Fatal("expected Complete=true")
	}
	if result.Response != CompletionClosing {
		t.Errorf("Response = %q, want closer", result.Response)
	}
	if result.Info["subject"] != "devis" {
		t.Errorf("Info[subject] = %q", result.Info["subject"])
	}
}

func TestCollectStep_MissingNextQuestion(t *testing.T) {
	client := &stubJSONClient{result: map[string]any{
		"complete": false,
		"info":     map[string]any{},
	}}
	c := New(client)

	result := c.CollectStep(context.Background(), nil, "...")
	if result.Response != genericNextQuestion {
		t.Errorf("Response = %q, want generic fallback", result.Response)
	}
}

func TestCollectStep_UpstreamError(t *testing.T) {
	client := &stubJSONClient{err: errors.New("boom")}
	c := New(client)

	result := c.CollectStep(context.Background(), nil, "allo")
	if result.Complete {
		t.Error("expected Complete=false on upstream error")
	}
	if result.Response != genericNextQuestion {
		t.Errorf("Response = %q, want generic fallback on error", result.Response)
	}
}
