package server

import "sync"

// visitorLocks serializes state changes per visitor so two requests for the
// same visitor cannot interleave their load, mutate and save. Entries are
// dropped once no request holds or waits for them.
type visitorLocks struct {
	mu    sync.Mutex
	locks map[string]*visitorLock
}

type visitorLock struct {
	mu   sync.Mutex
	refs int
}

func newVisitorLocks() *visitorLocks {
	return &visitorLocks{locks: make(map[string]*visitorLock)}
}

// lock blocks until visitorID is free and returns the matching unlock
func (v *visitorLocks) lock(visitorID string) func() {
	v.mu.Lock()
	l, ok := v.locks[visitorID]
	if !ok {
		l = &visitorLock{}
		v.locks[visitorID] = l
	}
	l.refs++
	v.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		v.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(v.locks, visitorID)
		}
		v.mu.Unlock()
	}
}

func (v *visitorLocks) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.locks)
}
