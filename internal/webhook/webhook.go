// Package webhook posts completed message records to the external
// notification endpoint, ported from
// original_source/app/ari_handler.py:send_message_to_n8n.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tksa/ai-receptionist/internal/observability"
)

const (
	unspecifiedService = "Non spécifié"
	unspecifiedName    = "Non spécifié"
	unspecifiedCompany = "Non spécifiée"
	unspecifiedSubject = "Non spécifié"
)

// Payload is the JSON body posted to the webhook.
type Payload struct {
	CallerID string `json:"caller_id"`
	Service  string `json:"service"`
	Nom      string `json:"nom"`
	Societe  string `json:"societe"`
	Sujet    string `json:"sujet"`
}

// NewPayload builds a Payload, substituting the fixed "Non spécifié(e)"
// placeholders for any missing field.
func NewPayload(callerID, serviceName, name, company, subject string) Payload {
	p := Payload{
		CallerID: callerID,
		Service:  unspecifiedService,
		Nom:      unspecifiedName,
		Societe:  unspecifiedCompany,
		Sujet:    unspecifiedSubject,
	}
	if serviceName != "" {
		p.Service = serviceName
	}
	if name != "" {
		p.Nom = name
	}
	if company != "" {
		p.Societe = company
	}
	if subject != "" {
		p.Sujet = subject
	}
	return p
}

// Notifier posts Payloads to a single configured URL. A zero-value URL
// makes every Notify call a no-op, per P7/spec.md §4.7.
type Notifier struct {
	url        string
	httpClient *http.Client
}

// New creates a Notifier. An empty url disables delivery entirely.
func New(url string) *Notifier {
	return &Notifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts payload to the configured webhook URL. Non-2xx responses and
// network failures are logged, never propagated — the engine calls this via
// `go notifier.Notify(...)` precisely so a slow or failing webhook never
// stalls the hangup path.
func (n *Notifier) Notify(ctx context.Context, payload Payload) {
	if n.url == "" {
		return
	}

	logger := observability.GetLogger()

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msg("webhook: marshal payload failed")
		observability.RecordWebhook(false)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		logger.Error().Err(err).Msg("webhook: build request failed")
		observability.RecordWebhook(false)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Msg("webhook: request failed")
		observability.RecordWebhook(false)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		logger.Error().Int("status", resp.StatusCode).Msg("webhook: non-2xx response")
		observability.RecordWebhook(false)
		return
	}

	observability.RecordWebhook(true)
}
