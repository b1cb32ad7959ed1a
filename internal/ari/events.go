package ari

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is anything the subscriber can emit to the dialog engine.
type Event interface {
	ChannelID() string
}

// CallStarted is emitted on StasisStart: a new channel entered the
// application-controlled execution context.
type CallStarted struct {
	ChannelIDValue string
	CallerID       string
}

func (e CallStarted) ChannelID() string { return e.ChannelIDValue }

// CallStasisEnded is emitted on StasisEnd.
type CallStasisEnded struct {
	ChannelIDValue string
}

func (e CallStasisEnded) ChannelID() string { return e.ChannelIDValue }

// PlaybackFinished is emitted when a Play operation completes.
type PlaybackFinished struct {
	ChannelIDValue string
}

func (e PlaybackFinished) ChannelID() string { return e.ChannelIDValue }

// RecordingFinished is emitted when a Record operation completes.
type RecordingFinished struct {
	ChannelIDValue string
	RecordingName  string
}

func (e RecordingFinished) ChannelID() string { return e.ChannelIDValue }

// HangupRequested is emitted on ChannelHangupRequest.
type HangupRequested struct {
	ChannelIDValue string
}

func (e HangupRequested) ChannelID() string { return e.ChannelIDValue }

// ChannelDestroyed is emitted on ChannelDestroyed: the channel is gone for
// good and its session must be removed.
type ChannelDestroyed struct {
	ChannelIDValue string
}

func (e ChannelDestroyed) ChannelID() string { return e.ChannelIDValue }

// rawEvent mirrors the bus's wire shape closely enough to decode every
// event type this adapter cares about.
type rawEvent struct {
	Type    string `json:"type"`
	Channel struct {
		ID     string `json:"id"`
		Caller struct {
			Number string `json:"number"`
		} `json:"caller"`
	} `json:"channel"`
	TargetURI string `json:"target_uri"`
	Recording struct {
		Name string `json:"name"`
	} `json:"recording"`
}

// channelIDFromTargetURI extracts the channel id from a "channel:<id>"
// shaped target_uri. ok is false for any other shape, per spec.md §4.5/P8.
func channelIDFromTargetURI(targetURI string) (string, bool) {
	const prefix = "channel:"
	if !strings.HasPrefix(targetURI, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(targetURI, prefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// DecodeEvent parses one JSON event frame from the bus into a typed Event.
// Unknown event types return (nil, nil) — not an error — so the subscriber
// loop can simply skip them. Malformed playback/recording events (no valid
// "channel:<id>" target_uri) are dropped the same way, per P8.
func DecodeEvent(raw []byte) (Event, error) {
	var ev rawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("ari: decode event: %w", err)
	}

	switch ev.Type {
	case "StasisStart":
		callerID := ev.Channel.Caller.Number
		if callerID == "" {
			callerID = "unknown"
		}
		return CallStarted{ChannelIDValue: ev.Channel.ID, CallerID: callerID}, nil

	case "StasisEnd":
		return CallStasisEnded{ChannelIDValue: ev.Channel.ID}, nil

	case "PlaybackFinished":
		channelID, ok := channelIDFromTargetURI(ev.TargetURI)
		if !ok {
			return nil, nil
		}
		return PlaybackFinished{ChannelIDValue: channelID}, nil

	case "RecordingFinished":
		channelID, ok := channelIDFromTargetURI(ev.TargetURI)
		if !ok {
			return nil, nil
		}
		return RecordingFinished{ChannelIDValue: channelID, RecordingName: ev.Recording.Name}, nil

	case "ChannelHangupRequest":
		return HangupRequested{ChannelIDValue: ev.Channel.ID}, nil

	case "ChannelDestroyed":
		return ChannelDestroyed{ChannelIDValue: ev.Channel.ID}, nil

	default:
		return nil, nil
	}
}

// SoundRef returns the sound reference the call-control bus understands for
// a TTS-cache fingerprint: "sound:custom/<fingerprint>". Requires the cache
// directory to be mounted into the bus's custom-sounds path, an operational
// concern outside this adapter.
func SoundRef(fingerprint string) string {
	return "sound:custom/" + fingerprint
}
