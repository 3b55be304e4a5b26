package usecase

import "sync"

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks serializes work per session id. Entries are dropped once nobody holds them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// lock blocks until the session is free and returns the matching unlock.
func (that *sessionLocks) lock(sessionID string) func() {
	that.mu.Lock()
	l, ok := that.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		that.locks[sessionID] = l
	}
	l.refs++
	that.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		that.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(that.locks, sessionID)
		}
		that.mu.Unlock()
	}
}
