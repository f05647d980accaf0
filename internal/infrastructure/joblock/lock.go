package joblock

import (
	"context"
	"sync"
	"time"
)

// Lock guards a named background job against concurrent execution.
// Acquire returns false when another holder already owns the job.
// A TTL bounds how long a crashed holder can keep the job blocked.
type Lock interface {
	// Acquire attempts to take the lease for the named job
	Acquire(ctx context.Context, job string, ttl time.Duration) (bool, error)
	// Release gives the lease back
	Release(ctx context.Context, job string) error
}

// InMemoryLock implements Lock for single-process deployments
type InMemoryLock struct {
	mu     sync.Mutex
	leases map[string]time.Time
	now    func() time.Time
}

var _ Lock = (*InMemoryLock)(nil)

// NewInMemoryLock creates a new in-process job lock
func NewInMemoryLock() *InMemoryLock {
	return &InMemoryLock{
		leases: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Acquire takes the lease unless a live one exists. Expired leases are
// reclaimed.
func (l *InMemoryLock) Acquire(ctx context.Context, job string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiry, held := l.leases[job]; held && now.Before(expiry) {
		return false, nil
	}
	l.leases[job] = now.Add(ttl)
	return true, nil
}

// Release gives the lease back
func (l *InMemoryLock) Release(ctx context.Context, job string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, job)
	return nil
}
