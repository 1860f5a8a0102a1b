package service

import "sync"

// UserMutex serialises writes per user inside this process.
// Entries are reference counted and dropped once no goroutine holds or waits for them.
type UserMutex struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewUserMutex() *UserMutex {
	return &UserMutex{locks: make(map[string]*userLock)}
}

// Lock blocks until userID is free and returns the matching unlock func
func (m *UserMutex) Lock(userID string) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, userID)
		}
		m.mu.Unlock()
	}
}

func (m *UserMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
