package engine

import (
	"context"
	"time"

	"github.com/tksa/ai-receptionist/internal/ari"
	"github.com/tksa/ai-receptionist/internal/collector"
	"github.com/tksa/ai-receptionist/internal/observability"
	"github.com/tksa/ai-receptionist/internal/webhook"
)

// CollectionOpener is played when falling into message collection.
// Exported so cmd/server can pre-warm its cache entry.
const CollectionOpener = "Le service est actuellement occupé. Puis-je prendre un message ? Quel est votre nom ?"

// ringTimeoutGrace is added on top of the configured ring timeout before
// the watchdog fires, per spec.md §4.6 ("ring_timeout + 1 seconds").
const ringTimeoutGrace = 1 * time.Second

// handleCallStarted answers the channel and plays the greeting, per
// spec.md §4.6 "On CallStarted".
func (e *Engine) handleCallStarted(ctx context.Context, sess *CallSession) {
	if err := e.call.Answer(ctx, sess.ChannelID); err != nil {
		observability.GetLogger().Error().Err(err).Str("channel_id", sess.ChannelID).Msg("answer failed")
	}
	e.playText(ctx, sess, e.cfg.GreetingMessage)
}

// handlePlaybackFinished advances the state machine on playback completion,
// per spec.md §4.6 "On PlaybackFinished".
func (e *Engine) handlePlaybackFinished(ctx context.Context, sess *CallSession) {
	switch sess.state {
	case Greeting:
		sess.state = WaitingServiceChoice
		e.startRecording(ctx, sess)
	case WaitingServiceChoice:
		e.startRecording(ctx, sess)
	case CollectingMessage:
		e.startRecording(ctx, sess)
	case Ending:
		if err := e.call.Hangup(ctx, sess.ChannelID); err != nil {
			observability.GetLogger().Error().Err(err).Str("channel_id", sess.ChannelID).Msg("hangup failed")
		}
	case Transferring:
		// ignore: no playback is expected while transferring
	}
}

// handleRecordingFinished transcribes the recording and dispatches to the
// classification or collection handler depending on state. Any
// transcription failure is converted to a clarification retry, per
// spec.md §4.6/§7 (P1's catch-all).
func (e *Engine) handleRecordingFinished(ctx context.Context, sess *CallSession, recordingName string) {
	path := e.recordingPath(recordingName)
	text, err := e.stt.Transcribe(ctx, path, e.cfg.STTLanguage)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Str("channel_id", sess.ChannelID).Msg("transcription failed, retrying")
		e.clarificationRetry(ctx, sess)
		return
	}

	switch sess.state {
	case WaitingServiceChoice:
		e.handleClassification(ctx, sess, text)
	case CollectingMessage:
		e.handleCollection(ctx, sess, text)
	}
}

func (e *Engine) clarificationRetry(ctx context.Context, sess *CallSession) {
	e.playText(ctx, sess, ClarificationPhrase)
}

// handleClassification runs the intent classifier and either starts a
// transfer or falls back to the unclear-retry path, per spec.md §4.6
// "Classification handler".
func (e *Engine) handleClassification(ctx context.Context, sess *CallSession, text string) {
	result, err := e.classifier.Classify(ctx, text)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Str("channel_id", sess.ChannelID).Msg("classification failed, treating as unclear")
		e.handleUnclear(ctx, sess, "")
		return
	}

	if result.Service != nil {
		sess.targetService = result.Service
		sess.state = Transferring
		e.playText(ctx, sess, result.Response)
		e.originate(ctx, sess)
		return
	}

	e.handleUnclear(ctx, sess, result.Response)
}

// handleUnclear advances the retry counter; on the third strike it jumps
// straight to message collection without replaying a clarification prompt
// (P5), otherwise it plays the clarification response and stays put.
func (e *Engine) handleUnclear(ctx context.Context, sess *CallSession, response string) {
	sess.retryCount++

	if sess.retryCount >= maxRetries {
		e.startCollection(ctx, sess)
		return
	}

	if response == "" {
		response = ClarificationPhrase
	}
	e.playText(ctx, sess, response)
}

// originate starts the blind transfer and arms the ring watchdog on
// success. Origination failure falls straight into message collection with
// no watchdog wait, per spec.md §4.6.
func (e *Engine) originate(ctx context.Context, sess *CallSession) {
	opts := ari.OriginateOptions{
		Endpoint: "PJSIP/" + sess.targetService.Extension,
		App:      e.cfg.ARIApp,
		AppArgs:  "transfer," + sess.ChannelID,
		Timeout:  e.cfg.RingTimeout,
		CallerID: sess.CallerID,
	}
	_, err := e.call.Originate(ctx, opts)
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("channel_id", sess.ChannelID).Msg("originate failed")
		observability.RecordTransfer("originate_failed")
		e.startCollection(ctx, sess)
		return
	}

	e.armWatchdog(sess)
}

// armWatchdog schedules the ring-timeout transition. The timer fires on its
// own goroutine and is routed back through the session's mailbox so the
// transition itself is serialized with every other event for this channel.
func (e *Engine) armWatchdog(sess *CallSession) {
	duration := e.cfg.RingTimeout + ringTimeoutGrace
	sess.transferWatchdog = time.AfterFunc(duration, func() {
		e.enqueue(sess, func(ctx context.Context) { e.handleRingTimeout(ctx, sess) })
	})
}

// handleRingTimeout falls into message collection if the session is still
// Transferring when the watchdog fires (P6: a watchdog that lost the race
// against a ChannelDestroyed/other transition must not act).
func (e *Engine) handleRingTimeout(ctx context.Context, sess *CallSession) {
	if sess.state != Transferring {
		return
	}
	observability.RecordTransfer("ring_timeout")
	e.startCollection(ctx, sess)
}

// startCollection initializes the message-collection dialog, per spec.md
// §4.6 "Collection init".
func (e *Engine) startCollection(ctx context.Context, sess *CallSession) {
	e.cancelWatchdog(sess)
	sess.state = CollectingMessage
	sess.conversation = nil
	sess.conversation = append(sess.conversation, Turn{Role: "assistant", Content: CollectionOpener})
	observability.RecordCollectionStarted()
	e.playText(ctx, sess, CollectionOpener)
}

// handleCollection runs one message-collection turn, merging any newly
// extracted fields and firing the webhook exactly once on completion, per
// spec.md §4.6 "Collection handler" (P7).
func (e *Engine) handleCollection(ctx context.Context, sess *CallSession, text string) {
	priorTurns := toCollectorTurns(sess.conversation)
	result := e.collector.CollectStep(ctx, priorTurns, text)

	sess.conversation = append(sess.conversation, Turn{Role: "user", Content: text})
	sess.mergeInfo(result.Info)

	if result.Complete {
		sess.state = Ending
		payload := webhook.NewPayload(
			sess.CallerID,
			serviceName(sess.targetService),
			sess.infoOrEmpty("name"),
			sess.infoOrEmpty("company"),
			sess.infoOrEmpty("subject"),
		)
		go e.notifier.Notify(context.Background(), payload)
	}

	sess.conversation = append(sess.conversation, Turn{Role: "assistant", Content: result.Response})
	e.playText(ctx, sess, result.Response)
}

// handleHangupRequested cancels any armed watchdog; the session itself is
// only removed on ChannelDestroyed, per spec.md §4.6.
func (e *Engine) handleHangupRequested(sess *CallSession) {
	e.cancelWatchdog(sess)
}

// handleChannelDestroyed cancels any armed watchdog, records a bridged
// transfer if one was in flight, and removes the session (P6).
func (e *Engine) handleChannelDestroyed(sess *CallSession) {
	e.cancelWatchdog(sess)

	if sess.state == Transferring {
		observability.RecordTransfer("bridged")
	}

	sess.terminated = true
	sess.cancel()
	e.removeSession(sess)
}

func (e *Engine) cancelWatchdog(sess *CallSession) {
	if sess.transferWatchdog != nil {
		sess.transferWatchdog.Stop()
		sess.transferWatchdog = nil
	}
}

func toCollectorTurns(turns []Turn) []collector.Turn {
	out := make([]collector.Turn, len(turns))
	for i, t := range turns {
		out[i] = collector.Turn{Role: t.Role, Content: t.Content}
	}
	return out
}
