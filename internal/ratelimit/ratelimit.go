package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket.
type Limiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time
	mu         sync.Mutex
}

func NewLimiter(rate float64, burst int) *Limiter {
	return newLimiter(rate, burst, time.Now)
}

// NewIntervalLimiter allows one event per interval with no burst.
func NewIntervalLimiter(interval time.Duration) *Limiter {
	return NewLimiter(1/interval.Seconds(), 1)
}

func newLimiter(rate float64, burst int, now func() time.Time) *Limiter {
	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: now(),
		now:        now,
	}
}

func (l *Limiter) Allow() bool {
	return l.AllowN(1)
}

func (l *Limiter) AllowN(n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= float64(n) {
		l.tokens -= float64(n)
		return true
	}

	return false
}

// Ready reports whether one event would be allowed without consuming it.
func (l *Limiter) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens >= 1
}

func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = now

	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}
}

func (l *Limiter) idleSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastUpdate
}

// ClientLimiters keeps one limiter per connection.
type ClientLimiters struct {
	limiters        map[string]*Limiter
	rate            float64
	burst           int
	mu              sync.RWMutex
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

func NewClientLimiters(rate float64, burst int) *ClientLimiters {
	cl := &ClientLimiters{
		limiters:        make(map[string]*Limiter),
		rate:            rate,
		burst:           burst,
		cleanupInterval: 5 * time.Minute,
		stop:            make(chan struct{}),
	}
	go cl.cleanup()
	return cl
}

// NewClientIntervalLimiters allows each client one event per interval.
func NewClientIntervalLimiters(interval time.Duration) *ClientLimiters {
	return NewClientLimiters(1/interval.Seconds(), 1)
}

func (cl *ClientLimiters) Get(clientID string) *Limiter {
	cl.mu.RLock()
	limiter, ok := cl.limiters[clientID]
	cl.mu.RUnlock()

	if ok {
		return limiter
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if limiter, ok := cl.limiters[clientID]; ok {
		return limiter
	}

	limiter = NewLimiter(cl.rate, cl.burst)
	cl.limiters[clientID] = limiter
	return limiter
}

// Allow consumes a token from clientID's bucket.
func (cl *ClientLimiters) Allow(clientID string) bool {
	return cl.Get(clientID).Allow()
}

// Ready reports whether clientID may send now, leaving its bucket untouched.
func (cl *ClientLimiters) Ready(clientID string) bool {
	return cl.Get(clientID).Ready()
}

func (cl *ClientLimiters) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.limiters, clientID)
}

func (cl *ClientLimiters) Len() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.limiters)
}

func (cl *ClientLimiters) Stop() {
	cl.stopOnce.Do(func() { close(cl.stop) })
}

func (cl *ClientLimiters) cleanup() {
	ticker := time.NewTicker(cl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.stop:
			return
		case <-ticker.C:
			cl.evictIdle(time.Now().Add(-cl.cleanupInterval))
		}
	}
}

// evictIdle drops limiters untouched since cutoff. A dropped limiter comes
// back full, which is what an idle bucket would have refilled to anyway.
func (cl *ClientLimiters) evictIdle(cutoff time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for id, l := range cl.limiters {
		if l.idleSince().Before(cutoff) {
			delete(cl.limiters, id)
		}
	}
}
