// Package collector drives the multi-turn message-collection dialog that
// extracts {name, company, subject} from a caller who could not be
// transferred, ported from original_source/app/ai_handler.py:collect_message_info.
package collector

import (
	"context"
	"fmt"

	"github.com/tksa/ai-receptionist/internal/aiclient"
)

// Turn is a single conversation entry; mirrors engine.Turn without importing
// the engine package (the collector is a leaf dependency of the engine).
type Turn struct {
	Role    string
	Content string
}

const (
	temperature         = 0.2
	genericNextQuestion = "Pouvez-vous me donner plus de détails ?"

	// CompletionClosing is played once the three fields are collected; exported
	// so cmd/server can pre-warm its exact cache fingerprint.
	CompletionClosing = "Merci pour ces informations. Nous vous rappellerons…"

	// NamePrompt, CompanyPrompt and SubjectPrompt are the standalone
	// collection questions from original_source/app/ai_handler.py's
	// pre_generate_common_audio list. The model's next_question is free-form
	// and usually won't match these verbatim, but pre-warming them makes a
	// mid-collection cache hit likely whenever it does.
	NamePrompt    = "Puis-je avoir votre nom s'il vous plaît ?"
	CompanyPrompt = "Et votre société ?"
	SubjectPrompt = "Quel est le sujet de votre appel ?"

	systemPromptTemplate = `Tu es un réceptionniste téléphonique qui prend un message pour un service occupé.
Ton objectif est de recueillir le nom de l'appelant, le nom de sa société, et le sujet de son appel.
Réponds uniquement avec un objet JSON de la forme :
{"complete": bool, "info": {"name": string, "company": string, "subject": string}, "next_question": string}
"complete" doit valoir true seulement une fois que les trois informations ont été obtenues.
"info" ne doit contenir que les champs nouvellement obtenus ou confirmés dans ce tour ; omets les champs inconnus.
"next_question" est la prochaine question à poser à l'appelant si complete vaut false.`
)

// JSONClassifier is the subset of aiclient.Client the collector needs.
type JSONClassifier interface {
	ClassifyJSON(ctx context.Context, messages []aiclient.Message, temperature float32) (map[string]any, error)
}

// Result is the outcome of one collection turn.
type Result struct {
	Complete bool
	Info     map[string]string
	Response string
}

// Collector is stateless: the engine owns the conversation and the
// accumulated info across turns.
type Collector struct {
	client JSONClassifier
}

// New creates a Collector.
func New(client JSONClassifier) *Collector {
	return &Collector{client: client}
}

// CollectStep appends userText to conversation, asks the chat model for a
// JSON-only completeness verdict, and returns the parsed result. A JSON
// parse failure (or any upstream error) is mapped to Complete=false with a
// generic next question, per spec.md §7.
func (c *Collector) CollectStep(ctx context.Context, conversation []Turn, userText string) Result {
	messages := make([]aiclient.Message, 0, len(conversation)+2)
	messages = append(messages, aiclient.Message{Role: "system", Content: systemPromptTemplate})
	for _, t := range conversation {
		messages = append(messages, aiclient.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, aiclient.Message{Role: "user", Content: userText})

	parsed, err := c.client.ClassifyJSON(ctx, messages, temperature)
	if err != nil {
		return Result{Complete: false, Response: genericNextQuestion}
	}

	complete, _ := parsed["complete"].(bool)
	info := extractInfo(parsed["info"])

	if complete {
		return Result{Complete: true, Info: info, Response: CompletionClosing}
	}

	next, _ := parsed["next_question"].(string)
	if next == "" {
		next = genericNextQuestion
	}
	return Result{Complete: false, Info: info, Response: next}
}

func extractInfo(raw any) map[string]string {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	info := make(map[string]string, len(obj))
	for _, key := range []string{"name", "company", "subject"} {
		v, ok := obj[key]
		if !ok {
			continue
		}
		s := fmt.Sprintf("%v", v)
		if s != "" && s != "<nil>" {
			info[key] = s
		}
	}
	return info
}
