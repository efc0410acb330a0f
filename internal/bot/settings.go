package bot

import (
	"sync"

	"github.com/kanon0/llmchat/internal/config"
)

// Settings holds the runtime-mutable switches administrative commands
// flip. Reads take a snapshot so one turn sees a consistent view.
type Settings struct {
	mu             sync.RWMutex
	enablePrivate  bool
	enableGroup    bool
	groupIsolation bool
	usernames      bool
	chunked        bool
}

// SettingsView is an immutable snapshot of Settings.
type SettingsView struct {
	EnablePrivate  bool
	EnableGroup    bool
	GroupIsolation bool
	Usernames      bool
	Chunked        bool
}

// NewSettings seeds the runtime switches from configuration.
func NewSettings(trigger config.Trigger, chunk config.Chunk) *Settings {
	return &Settings{
		enablePrivate:  trigger.EnablePrivate,
		enableGroup:    trigger.EnableGroup,
		groupIsolation: trigger.GroupChatIsolation,
		usernames:      trigger.EnableUsername,
		chunked:        chunk.Enable,
	}
}

// View returns a consistent snapshot.
func (s *Settings) View() SettingsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SettingsView{
		EnablePrivate:  s.enablePrivate,
		EnableGroup:    s.enableGroup,
		GroupIsolation: s.groupIsolation,
		Usernames:      s.usernames,
		Chunked:        s.chunked,
	}
}

func (s *Settings) SetPrivateEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enablePrivate = on
}

func (s *Settings) SetGroupEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enableGroup = on
}

// SetGroupIsolation flips per-user isolation in groups and reports
// whether the value changed; a change invalidates existing group
// sessions, which the caller must clear.
func (s *Settings) SetGroupIsolation(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.groupIsolation != on
	s.groupIsolation = on
	return changed
}

func (s *Settings) SetChunked(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunked = on
}
