package keylock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locker hands out one exclusive slot per key. Waiters give up when their
// context is cancelled. Entries are dropped once nobody holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem  *semaphore.Weighted
	refs int
}

func New() *Locker {
	return &Locker{slots: map[string]*slot{}}
}

// Lock blocks until key is free or ctx is done. The returned func releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s := l.slots[key]
	if s == nil {
		s = &slot{sem: semaphore.NewWeighted(1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		l.drop(key, s)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.sem.Release(1)
			l.drop(key, s)
		})
	}, nil
}

func (l *Locker) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs <= 0 && l.slots[key] == s {
		delete(l.slots, key)
	}
}

// Len reports how many keys are currently tracked.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
