package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	entries map[uint64]Entry
}

// NewMemoryStore creates a concurrency-safe in-memory entry store. It is the
// default backend for tests and for running without external storage.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[uint64]Entry)}
}

func (s *memoryStore) Get(_ context.Context, id uint64) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok, nil
}

func (s *memoryStore) Put(_ context.Context, entry Entry) error {
	if err := checkEntrySize(entry); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

func (s *memoryStore) Remove(_ context.Context, id uint64) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	return entry, ok, nil
}

func (s *memoryStore) Range(_ context.Context, start, end uint64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	matched := make([]Entry, 0)
	for _, id := range ids {
		entry := s.entries[id]
		if entry.Date >= start && entry.Date <= end {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// checkEntrySize enforces the serialized size bound shared by all backends.
func checkEntrySize(entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if len(raw) > MaxEntryBytes {
		return ErrEntryTooLarge
	}
	return nil
}

type memoryBalanceCell struct {
	mu    sync.RWMutex
	value float64
}

// NewMemoryBalanceCell creates an in-memory balance cell initialized to zero.
func NewMemoryBalanceCell() BalanceCell {
	return &memoryBalanceCell{}
}

func (c *memoryBalanceCell) Get(_ context.Context) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, nil
}

func (c *memoryBalanceCell) Set(_ context.Context, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	return nil
}

type memoryAllocator struct {
	mu      sync.Mutex
	counter uint64
}

// NewMemoryAllocator creates an in-memory id allocator starting at zero, so
// the first issued id is 1.
func NewMemoryAllocator() Allocator {
	return &memoryAllocator{}
}

func (a *memoryAllocator) NextID(_ context.Context) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counter++
	return a.counter, nil
}
