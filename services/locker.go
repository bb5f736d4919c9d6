package services

import (
	"context"
	"sync"
)

// UserLocker serializes work per user. Different users never contend, and
// the entry for a user is dropped once nobody holds or waits for it.
type UserLocker struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

func NewUserLocker() *UserLocker {
	return &UserLocker{locks: make(map[int64]*userLock)}
}

// Lock blocks until userID's lock is held or ctx is done. The returned func
// releases it and must be called exactly once.
func (l *UserLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	select {
	case ul.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, ul)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ul.ch
			l.release(userID, ul)
		})
	}, nil
}

func (l *UserLocker) release(userID int64, ul *userLock) {
	l.mu.Lock()
	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()
}

// Len is the number of users currently holding or waiting for a lock.
func (l *UserLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
