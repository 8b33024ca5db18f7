package sessions

import (
	"sync"

	"idiomguess/internal"
)

// Store is the in-memory single authority for session existence: at most one
// GameSession per user. It only guards the map itself; callers serialize all
// transitions for one user through a KeyMutex so that the timeout watcher and
// user-triggered actions cannot tear the same session down twice.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*internal.GameSession
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*internal.GameSession)}
}

func (store *Store) Get(userID int64) (*internal.GameSession, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	session, ok := store.sessions[userID]
	return session, ok
}

func (store *Store) Put(userID int64, session *internal.GameSession) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.sessions[userID] = session
}

func (store *Store) Remove(userID int64) {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.sessions, userID)
}

func (store *Store) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.sessions)
}

// KeyMutex hands out one mutex per user so session transitions for a given
// user run one at a time while different users stay independent.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[int64]*sync.Mutex)}
}

// Lock blocks until the user's mutex is held and returns the unlock func.
func (km *KeyMutex) Lock(userID int64) func() {
	km.mu.Lock()
	lock, ok := km.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		km.locks[userID] = lock
	}
	km.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
