package application

import (
	"sort"
	"sync"
)

// resourceLocks hands out one mutex per resource ID. Entries are reference
// counted and dropped once no caller holds or waits on them.
type resourceLocks struct {
	mu      sync.Mutex
	entries map[string]*resourceLock
}

type resourceLock struct {
	mu   sync.Mutex
	refs int
}

func newResourceLocks() *resourceLocks {
	return &resourceLocks{entries: make(map[string]*resourceLock)}
}

// lock acquires the locks for every distinct id in sorted order, so two
// callers requesting overlapping sets cannot deadlock. The returned function
// releases them.
func (l *resourceLocks) lock(ids []string) func() {
	keys := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id)
	}
	sort.Strings(keys)

	held := make([]*resourceLock, len(keys))
	l.mu.Lock()
	for i, key := range keys {
		entry, ok := l.entries[key]
		if !ok {
			entry = &resourceLock{}
			l.entries[key] = entry
		}
		entry.refs++
		held[i] = entry
	}
	l.mu.Unlock()

	for _, entry := range held {
		entry.mu.Lock()
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		l.mu.Lock()
		for i, key := range keys {
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.entries, key)
			}
		}
		l.mu.Unlock()
	}
}
