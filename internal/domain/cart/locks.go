package cart

import (
	"slices"
	"sync"
)

// ownerLocks hands out one mutex per owner key. Entries are dropped once no
// goroutine holds or waits on them.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

// lock acquires the mutexes for keys in sorted order and returns a function
// releasing all of them.
func (l *ownerLocks) lock(keys ...string) func() {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*ownerLock, 0, len(keys))
	for _, k := range keys {
		held = append(held, l.acquire(k))
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(keys[i], held[i])
		}
	}
}

func (l *ownerLocks) acquire(key string) *ownerLock {
	l.mu.Lock()
	ol, ok := l.locks[key]
	if !ok {
		ol = &ownerLock{}
		l.locks[key] = ol
	}
	ol.refs++
	l.mu.Unlock()

	ol.mu.Lock()
	return ol
}

func (l *ownerLocks) release(key string, ol *ownerLock) {
	ol.mu.Unlock()

	l.mu.Lock()
	ol.refs--
	if ol.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
