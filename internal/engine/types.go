// Package engine is the per-call dialog engine: a concurrent state machine
// per active call that sequences greeting → speech capture → transcription
// → intent classification → transfer-with-timeout → fallback message
// collection, per spec.md §4.6.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/tksa/ai-receptionist/internal/directory"
)

// State is one of the dialog engine's five states.
type State int

const (
	Greeting State = iota
	WaitingServiceChoice
	Transferring
	CollectingMessage
	Ending
)

func (s State) String() string {
	switch s {
	case Greeting:
		return "Greeting"
	case WaitingServiceChoice:
		return "WaitingServiceChoice"
	case Transferring:
		return "Transferring"
	case CollectingMessage:
		return "CollectingMessage"
	case Ending:
		return "Ending"
	default:
		return "Unknown"
	}
}

// Turn is one entry in a call's conversation transcript.
type Turn struct {
	Role    string // "assistant" or "user"
	Content string
}

const maxRetries = 3

// CallSession is the per-call state record, keyed by channel ID. All field
// access happens on the session's own actor goroutine, so no lock guards
// the fields themselves — only the mailbox send/close path needs
// synchronization, handled by the Engine's session table.
type CallSession struct {
	ChannelID string
	CallerID  string

	state         State
	targetService *directory.Service
	messageInfo   map[string]string
	conversation  []Turn
	retryCount    int

	transferWatchdog *time.Timer

	mailbox    chan func(context.Context)
	cancel     context.CancelFunc
	terminated bool // set by handleChannelDestroyed; tells the actor loop to exit

	closeOnce sync.Once
	done      chan struct{}
}

// mergeInfo shallow-merges new non-empty fields into the session's
// accumulated message info, per spec.md §4.4.
func (s *CallSession) mergeInfo(fresh map[string]string) {
	if s.messageInfo == nil {
		s.messageInfo = make(map[string]string)
	}
	for k, v := range fresh {
		if v != "" {
			s.messageInfo[k] = v
		}
	}
}

func (s *CallSession) infoOrEmpty(key string) string {
	if s.messageInfo == nil {
		return ""
	}
	return s.messageInfo[key]
}
