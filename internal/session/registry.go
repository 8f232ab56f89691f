package session

import (
	"sync"
	"time"

	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
)

// RegistryConfig configures a session Registry.
type RegistryConfig struct {
	MaxSessions   int           // Hard cap on live sessions; oldest is evicted when exceeded
	IdleTTL       time.Duration // Sessions idle longer than this are swept
	MaxHistory    int           // Per-session rolling history cap
	SweepInterval time.Duration // How often the idle sweeper runs
}

// Registry tracks live sessions in memory. It evicts the
// least-recently-seen session when the cap is reached and sweeps
// idle sessions in the background.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	config   RegistryConfig
	metrics  *metrics.Metrics
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry and starts its idle sweeper.
// Call Stop when done.
func NewRegistry(cfg RegistryConfig, m *metrics.Metrics) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		config:   cfg,
		metrics:  m,
		stopCh:   make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go r.sweepLoop()
	}

	return r
}

// GetOrCreate returns the session for id, creating it if absent.
// The second return value reports whether the session was created.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, false
	}

	if r.config.MaxSessions > 0 && len(r.sessions) >= r.config.MaxSessions {
		r.evictOldestLocked()
	}

	s := newSession(id, r.config.MaxHistory, now)
	r.sessions[id] = s
	r.updateGaugeLocked()
	return s, true
}

// Get returns the session for id, or nil if it does not exist.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// evictOldestLocked removes the least-recently-seen session.
// Must be called with mu held.
func (r *Registry) evictOldestLocked() {
	var (
		oldestID   string
		oldestSeen time.Time
	)
	for id, s := range r.sessions {
		if s.InTurn() {
			continue
		}
		seen := s.LastSeen()
		if oldestID == "" || seen.Before(oldestSeen) {
			oldestID = id
			oldestSeen = seen
		}
	}
	if oldestID != "" {
		delete(r.sessions, oldestID)
		if r.metrics != nil {
			r.metrics.RecordSessionEviction("lru")
		}
	}
}

// sweepLoop periodically removes idle sessions.
func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweepIdle()
		}
	}
}

// sweepIdle removes sessions idle longer than IdleTTL.
func (r *Registry) sweepIdle() {
	if r.config.IdleTTL <= 0 {
		return
	}
	cutoff := time.Now().Add(-r.config.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.InTurn() {
			continue
		}
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			if r.metrics != nil {
				r.metrics.RecordSessionEviction("idle")
			}
		}
	}
	r.updateGaugeLocked()
}

// updateGaugeLocked refreshes the live-session gauge.
// Must be called with mu held.
func (r *Registry) updateGaugeLocked() {
	if r.metrics != nil {
		r.metrics.SetActiveSessions(len(r.sessions))
	}
}

// Stop halts the idle sweeper. Safe to call multiple times.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}
