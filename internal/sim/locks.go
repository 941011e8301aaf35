package sim

import "sync"

// keyedMutex serializes operations per (userID, taskID) pair. Progress and
// inventory are read-then-written across multiple store calls within one
// logical operation; without this a double-submitted order or a scoring
// pass racing an order completion could lose updates.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for (userID, taskID) and returns its unlock func
func (k *keyedMutex) Lock(userID, taskID string) func() {
	key := userID + "/" + taskID

	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
