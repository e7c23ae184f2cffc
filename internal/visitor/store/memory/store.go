// Package memory keeps visitor storage bags in process memory.
package memory

import (
	"context"
	"sync"

	"blackhole/internal/visitor/store"
)

// InMemoryBagStore holds one key/value bag per browser.
type InMemoryBagStore struct {
	mu   sync.RWMutex
	bags map[string]map[string]string
}

// New creates an empty bag store.
func New() *InMemoryBagStore {
	return &InMemoryBagStore{bags: make(map[string]map[string]string)}
}

// Open returns storage scoped to bagID.
func (s *InMemoryBagStore) Open(bagID string) store.Storage {
	return &Bag{parent: s, id: bagID}
}

// Bag is the Storage view of a single bag.
type Bag struct {
	parent *InMemoryBagStore
	id     string
}

func (b *Bag) Get(_ context.Context, key string) (string, bool, error) {
	b.parent.mu.RLock()
	defer b.parent.mu.RUnlock()
	v, ok := b.parent.bags[b.id][key]
	return v, ok, nil
}

func (b *Bag) Set(_ context.Context, key, value string) error {
	b.parent.mu.Lock()
	defer b.parent.mu.Unlock()
	bag, ok := b.parent.bags[b.id]
	if !ok {
		bag = make(map[string]string)
		b.parent.bags[b.id] = bag
	}
	bag[key] = value
	return nil
}

func (b *Bag) Clear(_ context.Context) error {
	b.parent.mu.Lock()
	defer b.parent.mu.Unlock()
	delete(b.parent.bags, b.id)
	return nil
}

// NewStorage returns a standalone bag, handy in tests.
func NewStorage() store.Storage {
	return New().Open("standalone")
}
