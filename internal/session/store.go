package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Store maps ThreadIDs to Sessions and bounds the number of live
// conversations with least-recently-used eviction.
//
// Store is safe for concurrent use by multiple goroutines. All map
// mutation (create, evict, clear) happens under one mutex; the lock is
// never held across model or tool I/O.
type Store struct {
	mu          sync.Mutex
	sessions    map[ThreadID]*Session
	maxSessions int
	logger      *slog.Logger

	// now is injected for deterministic eviction tests.
	now func() time.Time
}

// NewStore creates a session store that retains at most maxSessions live
// conversations. A nil logger falls back to slog.Default().
func NewStore(maxSessions int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions:    make(map[ThreadID]*Session),
		maxSessions: maxSessions,
		logger:      logger,
		now:         time.Now,
	}
}

// GetOrCreate resolves the session for threadID, creating it on first
// use, and refreshes its last-accessed timestamp. It then evicts
// least-recently-used sessions over capacity; the thread just resolved
// is exempt from that pass, so the returned session is always live and
// the store never exceeds its capacity when this returns.
func (st *Store) GetOrCreate(threadID ThreadID) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[threadID]
	if !ok {
		sess = newSession(threadID, st.now())
		st.sessions[threadID] = sess
		st.logger.Debug("created session", "thread_id", threadID, "live", len(st.sessions))
	} else {
		sess.lastAccessed = st.now()
	}

	st.evictLocked(threadID)
	return sess
}

// EvictExcess removes least-recently-used sessions until the live count
// is within capacity. Runs opportunistically on the hot path; there is
// no background timer.
func (st *Store) EvictExcess() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.evictLocked("")
}

// evictLocked drops everything past the maxSessions most recently
// accessed sessions. exempt (when non-empty) is never evicted: the
// thread currently being serviced must survive its own resolution pass.
// Caller must hold st.mu.
func (st *Store) evictLocked(exempt ThreadID) {
	if len(st.sessions) <= st.maxSessions {
		return
	}

	type entry struct {
		id       ThreadID
		accessed time.Time
	}
	entries := make([]entry, 0, len(st.sessions))
	for id, sess := range st.sessions {
		entries = append(entries, entry{id, sess.lastAccessed})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessed.After(entries[j].accessed)
	})

	for _, e := range entries[st.maxSessions:] {
		if e.id == exempt {
			continue
		}
		delete(st.sessions, e.id)
		st.logger.Debug("evicted session", "thread_id", e.id, "last_accessed", e.accessed)
	}
}

// Get returns the session for threadID without creating or touching it.
func (st *Store) Get(threadID ThreadID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[threadID]
	return sess, ok
}

// Remove deletes the session for threadID. Used when a turn fails in a
// way that may leave the history inconsistent, so the next turn starts
// clean.
func (st *Store) Remove(threadID ThreadID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[threadID]; ok {
		delete(st.sessions, threadID)
		st.logger.Debug("removed session", "thread_id", threadID)
	}
}

// Clear removes every session matching the predicate and returns the
// number removed. A nil predicate removes all sessions. Shares the store
// mutex with GetOrCreate and eviction so administrative resets never
// race with session resolution.
func (st *Store) Clear(match func(ThreadID) bool) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id := range st.sessions {
		if match == nil || match(id) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.logger.Info("cleared sessions", "removed", removed, "live", len(st.sessions))
	}
	return removed
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
