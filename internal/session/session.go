package session

import (
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// Session owns exactly one conversation's mutable state: its message
// history and its last-accessed timestamp.
//
// The history is owned exclusively by the Session; callers get copies.
// Same-thread turns must be serialized by holding the turn lock
// (Lock/Unlock) for the duration of a dialogue turn.
type Session struct {
	threadID ThreadID

	// turnMu serializes dialogue turns for this thread. Held across the
	// whole turn, including model and tool I/O — never while holding the
	// store lock.
	turnMu sync.Mutex

	// histMu guards the history below.
	histMu  sync.RWMutex
	history []*ai.Message

	// lastAccessed is guarded by the owning Store's mutex.
	lastAccessed time.Time
}

func newSession(threadID ThreadID, now time.Time) *Session {
	return &Session{
		threadID:     threadID,
		history:      make([]*ai.Message, 0, 8),
		lastAccessed: now,
	}
}

// ThreadID returns the immutable conversation identity.
func (s *Session) ThreadID() ThreadID {
	return s.threadID
}

// Lock acquires the turn lock, serializing same-thread turns.
func (s *Session) Lock() { s.turnMu.Lock() }

// Unlock releases the turn lock.
func (s *Session) Unlock() { s.turnMu.Unlock() }

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []*ai.Message {
	s.histMu.RLock()
	defer s.histMu.RUnlock()
	out := make([]*ai.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Append adds messages to the end of the history.
func (s *Session) Append(msgs ...*ai.Message) {
	if len(msgs) == 0 {
		return
	}
	s.histMu.Lock()
	defer s.histMu.Unlock()
	s.history = append(s.history, msgs...)
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.histMu.RLock()
	defer s.histMu.RUnlock()
	return len(s.history)
}

// LastAccessed returns the last-touched timestamp. Only meaningful under
// the owning Store's lock; exposed for tests and diagnostics.
func (s *Session) LastAccessed() time.Time {
	return s.lastAccessed
}
