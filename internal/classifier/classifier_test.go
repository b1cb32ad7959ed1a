package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/tksa/ai-receptionist/internal/directory"
)

type stubClient struct {
	reply string
	err   error
}

func (s *stubClient) Classify(ctx context.Context, systemPrompt, userText string, temperature float32) (string, error) {
	return s.reply, s.err
}

func testDirectory() []directory.Service {
	return []directory.Service{
		{Extension: "101", Name: "Ventes"},
		{Extension: "102", Name: "Support"},
		{Extension: "103", Name: "Comptabilité"},
	}
}

// P4: Classify returns a service iff a configured name appears
// case-insensitively in the model's reply, tie-broken by directory order.
func TestClassify_Matched(t *testing.T) {
	client := &stubClient{reply: "Je pense que vous voulez le service VENTES."}
	eng := New(client, testDirectory())

	result, err := eng.Classify(context.Background(), "je voudrais parler des prix")
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}
	if result.Service == nil || result.Service.Name != "Ventes" {
		t.Fatalf("expected Ventes match, got %+v", result.Service)
	}
	want := "Je vous transfère au Ventes. Un instant s'il vous plaît."
	if result.Response != want {
		t.Errorf("Response = %q, want %q", result.Response, want)
	}
}

func TestClassify_Unclear(t *testing.T) {
	client := &stubClient{reply: "Pouvez-vous préciser votre demande ?"}
	eng := New(client, testDirectory())

	result, err := eng.Classify(context.Background(), "euh, quelqu'un")
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}
	if result.Service != nil {
		t.Errorf("expected no match, got %+v", result.Service)
	}
	if result.Response != client.reply {
		t.Errorf("Response = %q, want model reply %q", result.Response, client.reply)
	}
}

func TestClassify_DirectoryOrderTieBreak(t *testing.T) {
	// Reply mentions both "Support" and "Comptabilité"; directory order
	// (Ventes, Support, Comptabilité) means Support must win.
	client := &stubClient{reply: "Cela concerne peut-être le Support ou la Comptabilité."}
	eng := New(client, testDirectory())

	result, err := eng.Classify(context.Background(), "j'ai un problème")
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}
	if result.Service == nil || result.Service.Name != "Support" {
		t.Fatalf("expected Support (first directory match), got %+v", result.Service)
	}
}

func TestClassify_UpstreamError(t *testing.T) {
	client := &stubClient{err: errors.New("boom")}
	eng := New(client, testDirectory())

	_, err := eng.Classify(context.Background(), "allo")
	if err == nil {
		t.Error("expected error to propagate")
	}
}
