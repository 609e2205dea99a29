package config

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	BaseBackoff   = 1 * time.Second
	MaxBackoff    = 2 * time.Minute
	BackoffFactor = 2.0
	JitterFactor  = 0.5
)

type backoffData struct {
	BackoffDelay time.Duration
	NextRetryAt  time.Time
}

// BackoffStore tracks per-target retry pacing for background fetches, so a
// failing backend path is not hammered on every collector tick.
type BackoffStore struct {
	mu       sync.RWMutex
	backoffs map[string]backoffData
}

func NewBackoffStore() *BackoffStore {
	return &BackoffStore{
		backoffs: make(map[string]backoffData),
	}
}

func (s *BackoffStore) NextRetryAt(target string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if backoff, exists := s.backoffs[target]; exists {
		return backoff.NextRetryAt.UTC(), true
	}
	return time.Time{}, false
}

func (s *BackoffStore) UpdateBackoff(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if backoff, exists := s.backoffs[target]; exists {
		backoff.BackoffDelay = nextDelay(backoff.BackoffDelay)
		backoff.NextRetryAt = time.Now().Add(withJitter(backoff.BackoffDelay)).UTC()
		s.backoffs[target] = backoff
	} else {
		s.backoffs[target] = backoffData{
			BackoffDelay: BaseBackoff,
			NextRetryAt:  time.Now().Add(withJitter(BaseBackoff)).UTC(),
		}
	}
}

func (s *BackoffStore) ResetBackoff(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.backoffs, target)
}

func withJitter(backoff time.Duration) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(backoff) * JitterFactor)
	backoff += jitter
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}
	return backoff
}

func nextDelay(backoffDelay time.Duration) time.Duration {
	backoffDelay = time.Duration(float64(backoffDelay) * BackoffFactor)
	if backoffDelay >= MaxBackoff {
		backoffDelay = MaxBackoff
	}
	return backoffDelay
}
