package cache

import (
	"sync"
	"time"

	"dompet/internal/log"
)

// Cache is the generic keyed cache contract.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge() int
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Purger is implemented by caches that must be emptied when the snapshot
// they were derived from is replaced.
type Purger interface {
	Purge() int
}

// Manager runs periodic expiry for registered caches and purges them when
// the snapshot changes.
type Manager struct {
	mu       sync.Mutex
	cleaners []Cleaner
	purgers  []Purger
	logger   *log.Logger
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		logger: logger.WithComponent(log.ComponentCache),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds c to periodic cleanup and, when it supports it, to Purge.
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleaners = append(m.cleaners, c)
	if p, ok := c.(Purger); ok {
		m.purgers = append(m.purgers, p)
	}
}

// PurgeAll empties every registered cache.
func (m *Manager) PurgeAll() int {
	m.mu.Lock()
	purgers := append([]Purger(nil), m.purgers...)
	m.mu.Unlock()

	total := 0
	for _, p := range purgers {
		total += p.Purge()
	}
	if total > 0 {
		m.logger.Debug("memo purged", log.FieldCount, total)
	}
	return total
}

// StartCleanup begins periodic expiry. Stop must be called to release it.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interval <= 0 || m.started {
		return
	}
	m.started = true
	go m.loop(interval)
}

func (m *Manager) loop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			cleaners := append([]Cleaner(nil), m.cleaners...)
			m.mu.Unlock()
			cleaned := 0
			for _, c := range cleaners {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				m.logger.Debug("expired memo entries removed", log.FieldCount, cleaned)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the cleanup loop started by StartCleanup. It is safe to call
// more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		<-m.done
	}
}
