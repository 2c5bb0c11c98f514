// Package lock provides named mutual exclusion for row-scoped critical
// sections. It stands in for the row-level SELECT FOR UPDATE discipline when
// several code paths (interactive assignment, batch rebalancing) mutate the
// same ticket and agent rows.
package lock

import (
	"sort"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out one mutex per key. Entries are reference-counted and
// removed once the last holder releases, so the map does not grow with the
// keyspace.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking until it is free. The returned
// function releases it.
func (r *Registry) Lock(key string) func() {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.entries, key)
		}
		r.mu.Unlock()
	}
}

// LockMany acquires the mutexes for all keys in sorted order, which keeps the
// acquisition order fixed across callers and rules out deadlock between the
// interactive and batch paths. Duplicate keys are locked once.
func (r *Registry) LockMany(keys []string) func() {
	unique := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}
	sort.Strings(unique)

	releases := make([]func(), 0, len(unique))
	for _, key := range unique {
		releases = append(releases, r.Lock(key))
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}
