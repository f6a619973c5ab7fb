package activesync

import (
	"fmt"
	"sync"
)

// keyedMutex serializes requests per (principal, device, collection).
// Entries are reference counted and removed once the last holder releases,
// so the map does not grow with partnership churn.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the key is free and returns the release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e := k.locks[key]
	if e == nil {
		e = &lockEntry{}
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

func stateKey(principalID int64, deviceID, collectionID string) string {
	return fmt.Sprintf("%d|%s|%s", principalID, deviceID, collectionID)
}

// DeviceKey identifies one partnership for Ping cancellation.
func DeviceKey(principalID int64, deviceID string) string {
	return fmt.Sprintf("%d|%s", principalID, deviceID)
}
