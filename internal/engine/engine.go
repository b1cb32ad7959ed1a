package engine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tksa/ai-receptionist/internal/ari"
	"github.com/tksa/ai-receptionist/internal/classifier"
	"github.com/tksa/ai-receptionist/internal/collector"
	"github.com/tksa/ai-receptionist/internal/directory"
	"github.com/tksa/ai-receptionist/internal/observability"
	"github.com/tksa/ai-receptionist/internal/ttscache"
	"github.com/tksa/ai-receptionist/internal/webhook"
)

// ClarificationPhrase is replayed whenever transcription or classification
// comes back unclear. Exported so cmd/server can pre-warm its cache entry.
const ClarificationPhrase = "Je n'ai pas compris. Pouvez-vous répéter s'il vous plaît ?"

// CallControl is the subset of ari.Client the engine depends on.
type CallControl interface {
	Answer(ctx context.Context, channelID string) error
	Play(ctx context.Context, channelID, soundRef string) error
	Record(ctx context.Context, channelID string, opts ari.RecordOptions) error
	Originate(ctx context.Context, opts ari.OriginateOptions) (string, error)
	Hangup(ctx context.Context, channelID string) error
}

// Transcriber is the subset of aiclient.Client the engine depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, path, language string) (string, error)
}

// AudioCache is the subset of ttscache.Cache the engine depends on.
type AudioCache interface {
	EnsureAudio(ctx context.Context, text string, useCache bool) (string, error)
}

// ServiceClassifier is the subset of classifier.Engine the engine depends on.
type ServiceClassifier interface {
	Classify(ctx context.Context, userText string) (classifier.Result, error)
}

// MessageCollector is the subset of collector.Collector the engine depends on.
type MessageCollector interface {
	CollectStep(ctx context.Context, conversation []collector.Turn, userText string) collector.Result
}

// Notifier is the subset of webhook.Notifier the engine depends on.
type Notifier interface {
	Notify(ctx context.Context, payload webhook.Payload)
}

// Config holds the engine's tunables, sourced from internal/config.Config.
type Config struct {
	GreetingMessage string
	RingTimeout     time.Duration
	RecordingsDir   string
	ARIApp          string
	STTLanguage     string
}

// Engine owns the session table and drives every active call's state
// machine. It is the sole mutator of CallSession state; all mutation
// happens on each session's own actor goroutine.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*CallSession

	call       CallControl
	stt        Transcriber
	cache      AudioCache
	classifier ServiceClassifier
	collector  MessageCollector
	notifier   Notifier

	cfg Config
}

// New creates an Engine wired to its collaborators.
func New(call CallControl, stt Transcriber, cache AudioCache, clsfr ServiceClassifier, coll MessageCollector, notifier Notifier, cfg Config) *Engine {
	return &Engine{
		sessions:   make(map[string]*CallSession),
		call:       call,
		stt:        stt,
		cache:      cache,
		classifier: clsfr,
		collector:  coll,
		notifier:   notifier,
		cfg:        cfg,
	}
}

// Dispatch routes a decoded call-control event to its session's actor
// mailbox, creating the session first on CallStarted. Events for unknown
// channels (other than CallStarted) are dropped — the session table is the
// sole source of truth for which channels are live, per spec.md §3.
func (e *Engine) Dispatch(ev ari.Event) {
	switch typed := ev.(type) {
	case ari.CallStarted:
		sess := e.getOrCreateSession(typed.ChannelIDValue, typed.CallerID)
		e.enqueue(sess, func(ctx context.Context) { e.handleCallStarted(ctx, sess) })

	case ari.CallStasisEnded:
		// Not part of the state graph; StasisEnd precedes ChannelDestroyed
		// and carries no actionable information here.

	case ari.PlaybackFinished:
		if sess, ok := e.lookup(typed.ChannelIDValue); ok {
			e.enqueue(sess, func(ctx context.Context) { e.handlePlaybackFinished(ctx, sess) })
		}

	case ari.RecordingFinished:
		if sess, ok := e.lookup(typed.ChannelIDValue); ok {
			name := typed.RecordingName
			e.enqueue(sess, func(ctx context.Context) { e.handleRecordingFinished(ctx, sess, name) })
		}

	case ari.HangupRequested:
		if sess, ok := e.lookup(typed.ChannelIDValue); ok {
			e.enqueue(sess, func(ctx context.Context) { e.handleHangupRequested(sess) })
		}

	case ari.ChannelDestroyed:
		if sess, ok := e.lookup(typed.ChannelIDValue); ok {
			e.enqueue(sess, func(ctx context.Context) { e.handleChannelDestroyed(sess) })
		}
	}
}

func (e *Engine) getOrCreateSession(channelID, callerID string) *CallSession {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sess, ok := e.sessions[channelID]; ok {
		return sess
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &CallSession{
		ChannelID: channelID,
		CallerID:  callerID,
		state:     Greeting,
		mailbox:   make(chan func(context.Context), 16),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	e.sessions[channelID] = sess
	go e.runSession(ctx, sess)
	return sess
}

func (e *Engine) lookup(channelID string) (*CallSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[channelID]
	return sess, ok
}

func (e *Engine) removeSession(sess *CallSession) {
	e.mu.Lock()
	delete(e.sessions, sess.ChannelID)
	e.mu.Unlock()
}

// enqueue hands a job to the session's actor, never blocking past the
// session's lifetime: if the session has already terminated, the job is
// silently dropped rather than leaking the sending goroutine.
func (e *Engine) enqueue(sess *CallSession, job func(context.Context)) {
	select {
	case sess.mailbox <- job:
	case <-sess.done:
	}
}

// runSession is the per-session actor: a single goroutine draining the
// mailbox in order, so two events for the same channel never race. A panic
// inside one job is recovered so it never takes down the dispatcher or
// another session's actor (§7).
func (e *Engine) runSession(ctx context.Context, sess *CallSession) {
	defer sess.closeOnce.Do(func() { close(sess.done) })

	for job := range sess.mailbox {
		e.runJob(ctx, sess, job)
		if sess.terminated {
			return
		}
	}
}

func (e *Engine) runJob(ctx context.Context, sess *CallSession, job func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			observability.GetLogger().Error().
				Str("channel_id", sess.ChannelID).
				Interface("panic", r).
				Msg("engine: recovered panic in session handler")
		}
	}()
	job(ctx)
}

// playText ensures cached audio exists for text and plays it on the
// session's channel. Failures are logged; per spec.md §7 a TTS failure
// propagates no further than the current dialog step (the state machine
// simply does not advance until the corresponding PlaybackFinished arrives,
// which it now never will — an accepted desync matching the error table's
// treatment of call-control request failures).
func (e *Engine) playText(ctx context.Context, sess *CallSession, text string) {
	if _, err := e.cache.EnsureAudio(ctx, text, true); err != nil {
		observability.GetLogger().Error().Err(err).Str("channel_id", sess.ChannelID).Msg("tts synthesis failed")
		return
	}

	fingerprint := ttscache.Fingerprint(text)
	if err := e.call.Play(ctx, sess.ChannelID, ari.SoundRef(fingerprint)); err != nil {
		observability.GetLogger().Error().Err(err).Str("channel_id", sess.ChannelID).Msg("play failed")
	}
}

func (e *Engine) startRecording(ctx context.Context, sess *CallSession) {
	name := uuid.New().String()
	err := e.call.Record(ctx, sess.ChannelID, ari.RecordOptions{
		Name:        name,
		Format:      "wav",
		MaxDuration: 10 * time.Second,
		MaxSilence:  2 * time.Second,
		Beep:        false,
	})
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("channel_id", sess.ChannelID).Msg("record failed")
	}
}

func (e *Engine) recordingPath(name string) string {
	return filepath.Join(e.cfg.RecordingsDir, name+".wav")
}

func serviceName(svc *directory.Service) string {
	if svc == nil {
		return ""
	}
	return svc.Name
}

// PreWarmPhrases returns every fixed phrase the dialog engine can play,
// keyed from the same constants and builders the handlers themselves call
// — so a pre-warmed cache entry always shares its fingerprint with what
// actually gets spoken, per spec.md §4.2/§4.3. greeting is the configured
// greeting message; services is the transfer directory.
func PreWarmPhrases(greeting string, services []directory.Service) []string {
	phrases := []string{
		greeting,
		ClarificationPhrase,
		CollectionOpener,
		collector.CompletionClosing,
		collector.NamePrompt,
		collector.CompanyPrompt,
		collector.SubjectPrompt,
	}
	for _, svc := range services {
		phrases = append(phrases, classifier.TransferAnnouncement(svc.Name))
	}
	return phrases
}

