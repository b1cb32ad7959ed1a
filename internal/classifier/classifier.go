// Package classifier maps a free-form caller utterance to a service in the
// company directory, via chat completion plus deterministic name matching,
// ported from original_source/app/ai_handler.py:understand_intent.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/tksa/ai-receptionist/internal/directory"
)

// Synthesizer-equivalent dependency: the subset of aiclient.Client the
// classifier needs.
type Classifier interface {
	Classify(ctx context.Context, systemPrompt, userText string, temperature float32) (string, error)
}

// Result is the outcome of classifying one utterance.
type Result struct {
	Service  *directory.Service
	Response string
}

const temperature = 0.3

// New creates a service classifier over the given directory.
func New(client Classifier, services []directory.Service) *Engine {
	return &Engine{client: client, services: services}
}

// Engine classifies caller utterances against a fixed service directory.
type Engine struct {
	client   Classifier
	services []directory.Service
}

// Classify sends userText to the chat model alongside a directory-aware
// system prompt, then matches the reply against configured service names by
// case-insensitive substring containment in directory order (P4): the first
// match wins. If no name matches, the model's own reply is returned as a
// clarification question.
func (e *Engine) Classify(ctx context.Context, userText string) (Result, error) {
	reply, err := e.client.Classify(ctx, e.systemPrompt(), userText, temperature)
	if err != nil {
		return Result{}, fmt.Errorf("classifier: %w", err)
	}

	lower := strings.ToLower(reply)
	for i := range e.services {
		svc := &e.services[i]
		if strings.Contains(lower, strings.ToLower(svc.Name)) {
			return Result{Service: svc, Response: TransferAnnouncement(svc.Name)}, nil
		}
	}

	return Result{Service: nil, Response: reply}, nil
}

// TransferAnnouncement builds the fixed transfer announcement for a service
// name. Exported so cmd/server can pre-warm the exact phrase (fingerprint
// and all) that Classify plays at transfer time.
func TransferAnnouncement(serviceName string) string {
	return fmt.Sprintf("Je vous transfère au %s. Un instant s'il vous plaît.", serviceName)
}

func (e *Engine) systemPrompt() string {
	var b strings.Builder
	b.WriteString("Tu es un réceptionniste téléphonique. Voici les services disponibles :\n")
	for _, svc := range e.services {
		fmt.Fprintf(&b, "- %s (poste %s)\n", svc.Name, svc.Extension)
	}
	b.WriteString("L'appelant va décrire ce qu'il souhaite. Réponds uniquement avec le nom exact " +
		"d'un des services ci-dessus s'il correspond clairement à sa demande, ou avec une courte " +
		"question de clarification si ce n'est pas clair.")
	return b.String()
}
