package session

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an idle session survives between touches.
	DefaultTTL = 30 * time.Minute

	defaultSweepInterval = time.Minute
)

type memoryEntry struct {
	sess      *Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory with a sliding TTL and a
// background sweep that releases expired records.
type MemoryStore struct {
	ttl           time.Duration
	sweepInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]memoryEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates an in-memory store and starts its sweep loop.
// Zero values fall back to DefaultTTL and a one-minute sweep.
func NewMemoryStore(ttl, sweepInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	s := &MemoryStore{
		ttl:           ttl,
		sweepInterval: sweepInterval,
		sessions:      make(map[string]memoryEntry),
		stop:          make(chan struct{}),
	}
	go s.sweepLoop()

	return s
}

// Get implements Store. Expired records are removed lazily.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, notFoundError(id)
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, notFoundError(id)
	}

	return entry.sess.clone(), nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = memoryEntry{
		sess:      sess.clone(),
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Len implements Store. Expired but not yet swept records are not counted.
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.sessions {
		if now.Before(entry.expiresAt) {
			count++
		}
	}
	return count, nil
}

// Close stops the sweep loop. Stored sessions become unreachable.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
