// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package keylock serializes work on one logical key.

The ingest engine locks a series before it touches the series row, its recency
pointers or any volume it adopts, so two records racing on the same series
never interleave their read-modify-write cycles.

Implementations:

  - [Memory]: one process, any number of workers.
  - [Redis]: several ingest processes sharing one catalog.
*/
package keylock

import (
	"context"
	"sync"
)

// Locker grants exclusive access to a key until the returned unlock is called.
//
// Lock blocks until the key is free or ctx is done. Unlock is idempotent.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Memory is an in-process [Locker].
//
// Entries are reference counted and removed once no goroutine holds or waits
// for the key, so the map only grows with the number of keys in use.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*memoryEntry
}

type memoryEntry struct {
	token chan struct{}
	refs  int
}

// NewMemory constructs an empty in-process locker.
func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*memoryEntry)}
}

// Lock implements [Locker].
func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		entry = &memoryEntry{token: make(chan struct{}, 1)}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.token <- struct{}{}:
	case <-ctx.Done():
		m.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.token
			m.release(key, entry)
		})
	}, nil
}

// Len reports how many keys are currently held or awaited.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *Memory) release(key string, entry *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
}
