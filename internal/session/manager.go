// Package session keeps per-user conversation state in memory.
package session

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ashureev/erp-assistant/internal/domain"
)

// Manager maps session keys to sessions. Sessions idle longer than the TTL are
// evicted; a TTL of zero keeps them for the life of the process.
type Manager struct {
	cache  *gocache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a manager. janitor is how often expired sessions are
// swept; it is ignored when ttl is zero.
func NewManager(ttl, janitor time.Duration, logger *slog.Logger) *Manager {
	expiration := ttl
	if ttl <= 0 {
		expiration = gocache.NoExpiration
		janitor = 0
	} else if janitor <= 0 {
		janitor = ttl / 2
	}

	m := &Manager{
		cache:  gocache.New(expiration, janitor),
		logger: logger,
		now:    time.Now,
	}
	m.cache.OnEvicted(func(key string, _ interface{}) {
		m.logger.Debug("Session evicted", "session_key", key)
	})
	return m
}

// GetOrCreate returns the session for key (see domain.User.SessionKey),
// creating an idle one on first contact. Repeated calls return the same
// pointer and refresh its expiry.
func (m *Manager) GetOrCreate(key string) *domain.Session {
	if v, found := m.cache.Get(key); found {
		s := v.(*domain.Session)
		m.cache.SetDefault(key, s)
		return s
	}

	s := domain.NewSession(key, m.now())
	if err := m.cache.Add(key, s, gocache.DefaultExpiration); err != nil {
		// Lost a race with a concurrent first contact.
		if v, found := m.cache.Get(key); found {
			return v.(*domain.Session)
		}
		m.cache.SetDefault(key, s)
	}
	m.logger.Debug("Session created", "session_key", key)
	return s
}

// Get returns the session for key if it exists.
func (m *Manager) Get(key string) (*domain.Session, bool) {
	v, found := m.cache.Get(key)
	if !found {
		return nil, false
	}
	return v.(*domain.Session), true
}

// Reset clears the flow state of the session under key, if any.
func (m *Manager) Reset(key string) {
	if s, ok := m.Get(key); ok {
		s.Lock()
		s.Reset()
		s.Unlock()
	}
}

// Delete forgets the session under key.
func (m *Manager) Delete(key string) {
	m.cache.Delete(key)
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (m *Manager) Len() int {
	return m.cache.ItemCount()
}
