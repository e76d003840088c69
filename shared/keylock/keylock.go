// Package keylock provides per-key mutual exclusion. Each key gets its own
// mutex, created on first use and reclaimed once nothing holds or waits for
// it, so a long-lived churn of distinct keys does not grow the table.
package keylock

import (
	"context"
	"fmt"
	"sync"
)

type lock struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex hands out scoped locks keyed by an arbitrary string. Operations
// on distinct keys never contend with each other; the internal table mutex is
// held only for entry bookkeeping, never across an acquisition.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lock
}

func New() *KeyedMutex {
	return &KeyedMutex{
		locks: map[string]*lock{},
	}
}

// Acquire blocks until the lock for key is held or ctx is done. On success it
// returns a release function that must be called exactly once; calling it
// more than once is a no-op. Cancellation while waiting leaves the lock table
// unchanged.
func (k *KeyedMutex) Acquire(ctx context.Context, key string) (release func(), err error) {
	k.mu.Lock()

	l, ok := k.locks[key]
	if !ok {
		l = &lock{sem: make(chan struct{}, 1)}
		k.locks[key] = l
	}

	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		var once sync.Once

		return func() {
			once.Do(func() {
				<-l.sem
				k.put(key, l)
			})
		}, nil
	case <-ctx.Done():
		k.put(key, l)

		return nil, fmt.Errorf("acquiring lock for %q: %w", key, ctx.Err())
	}
}

// put drops one reference and reclaims the entry once no holder or waiter
// remains.
func (k *KeyedMutex) put(key string, l *lock) {
	k.mu.Lock()

	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}

	k.mu.Unlock()
}

// Len reports how many keys currently have a live lock entry. Used by tests
// to verify reclamation.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}
