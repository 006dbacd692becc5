package service

import "sync"

// copyLocks serializes loan operations per copy. Entries are reference counted
// and dropped once nobody holds or waits for them.
type copyLocks struct {
	mu    sync.Mutex
	locks map[int64]*copyLock
}

type copyLock struct {
	mu   sync.Mutex
	refs int
}

func newCopyLocks() *copyLocks {
	return &copyLocks{locks: make(map[int64]*copyLock)}
}

// Lock blocks until the copy is free and returns the matching unlock func,
// which may be called more than once.
func (l *copyLocks) Lock(copyID int64) func() {
	l.mu.Lock()
	cl, ok := l.locks[copyID]
	if !ok {
		cl = &copyLock{}
		l.locks[copyID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			cl.mu.Unlock()
			l.mu.Lock()
			cl.refs--
			if cl.refs == 0 {
				delete(l.locks, copyID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *copyLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
