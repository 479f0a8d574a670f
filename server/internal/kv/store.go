package kv

import (
	"errors"
	"slices"
	"sync"
	"time"
)

var ErrNotFound = errors.New("no stream found for the given key")

// Snapshot is the observable state of an in-flight download.
type Snapshot struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	State     string    `json:"state"`
	Bytes     int64     `json:"bytes"`
	Size      string    `json:"size"`
	StartedAt time.Time `json:"startedAt"`
}

type Entry interface {
	Snapshot() Snapshot
}

// In-Memory Thread-Safe Key-Value Storage of the downloads currently
// streaming. Nothing outlives the process.
type Store struct {
	table map[string]Entry
	mu    sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		table: make(map[string]Entry),
	}
}

// Get an entry given its id
func (m *Store) Get(id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.table[id]
	if !ok {
		return nil, ErrNotFound
	}

	return entry, nil
}

func (m *Store) Set(id string, e Entry) {
	m.mu.Lock()
	m.table[id] = e
	m.mu.Unlock()
}

func (m *Store) Delete(id string) {
	m.mu.Lock()
	delete(m.table, id)
	m.mu.Unlock()
}

func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.table)
}

// All returns the snapshots of every stored entry, oldest first.
func (m *Store) All() []Snapshot {
	running := []Snapshot{}

	m.mu.RLock()
	for _, v := range m.table {
		running = append(running, v.Snapshot())
	}
	m.mu.RUnlock()

	slices.SortFunc(running, func(a, b Snapshot) int {
		return a.StartedAt.Compare(b.StartedAt)
	})

	return running
}
