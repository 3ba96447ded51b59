package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout is how long an unused session is kept.
const DefaultIdleTimeout = 30 * time.Minute

// Manager owns the sessions of the web shell, keyed by a random UUID that
// the server stores in a cookie. Idle sessions are evicted in the
// background until Stop is called.
type Manager struct {
	// mu protects sessions.
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewManager starts a Manager that evicts sessions unused for idle. A
// non-positive idle uses DefaultIdleTimeout.
func NewManager(idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		idle:     idle,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.evictLoop(evictInterval(idle))
	return m
}

// Get returns the session with the given ID, or false.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Create registers a new session under a fresh UUID.
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString())
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// GetOrCreate returns the session for id, creating a new one (with a new
// ID) when id is unknown or expired.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	return m.Create(), true
}

// Delete drops a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop ends the eviction loop and waits for it to exit. It is safe to call
// more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.done
}

func (m *Manager) evictLoop(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.evict(now)
		}
	}
}

// evict removes sessions idle for longer than m.idle as of now.
func (m *Manager) evict(now time.Time) int {
	cutoff := now.Add(-m.idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func evictInterval(idle time.Duration) time.Duration {
	every := idle / 4
	if every > time.Minute {
		every = time.Minute
	}
	if every < 10*time.Millisecond {
		every = 10 * time.Millisecond
	}
	return every
}
