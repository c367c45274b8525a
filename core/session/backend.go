package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Values is the key/value payload of a session.
// Values must survive a JSON round trip; backends persist them as JSON.
type Values map[string]any

// Backend persists session payloads by id.
// Implementations must handle concurrent access safely.
type Backend interface {
	// Load returns the payload for id or ErrNotFound.
	Load(ctx context.Context, id string) (Values, error)
	// Save stores the payload for id, replacing any previous one, and expires it after ttl.
	Save(ctx context.Context, id string, values Values, ttl time.Duration) error
	// Delete removes the payload for id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// Encode serialises values for storage.
func Encode(values Values) ([]byte, error) {
	if values == nil {
		values = Values{}
	}
	return json.Marshal(values)
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (Values, error) {
	values := Values{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryBackend is a process-local Backend.
// Payloads are stored encoded, so readers observe the same types a remote backend would return.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Load implements Backend.
func (b *MemoryBackend) Load(_ context.Context, id string) (Values, error) {
	b.mu.RLock()
	entry, ok := b.entries[id]
	b.mu.RUnlock()

	if !ok || b.now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return Decode(entry.data)
}

// Save implements Backend.
func (b *MemoryBackend) Save(_ context.Context, id string, values Values, ttl time.Duration) error {
	data, err := Encode(values)
	if err != nil {
		return errors.Join(ErrSaveSession, err)
	}

	b.mu.Lock()
	b.entries[id] = memoryEntry{data: data, expiresAt: b.now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	delete(b.entries, id)
	b.mu.Unlock()
	return nil
}

// DeleteExpired removes expired payloads and returns how many were removed.
func (b *MemoryBackend) DeleteExpired(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var n int64
	for id, entry := range b.entries {
		if now.After(entry.expiresAt) {
			delete(b.entries, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored payloads, including expired ones not yet collected.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
