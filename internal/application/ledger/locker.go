package ledger

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// KeyedLocker serializes writers per key (member or collector id) inside one
// process. Database row locks give the same guarantee across processes on
// PostgreSQL; this covers stores without row locks such as SQLite.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedLocker creates an empty locker
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[uuid.UUID]*keyedEntry)}
}

// Lock blocks until key is free and returns the matching unlock function
func (l *KeyedLocker) Lock(key uuid.UUID) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &keyedEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// LockAll locks several keys in a stable order so two callers never deadlock
func (l *KeyedLocker) LockAll(keys []uuid.UUID) func() {
	ordered := SortedUnique(keys)
	unlocks := make([]func(), 0, len(ordered))
	for _, k := range ordered {
		unlocks = append(unlocks, l.Lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// SortedUnique returns keys without duplicates, ordered by their string form
func SortedUnique(keys []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(keys))
	out := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
