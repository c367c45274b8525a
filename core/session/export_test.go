package session

import "time"

// SetClock replaces the backend clock in tests.
func (b *MemoryBackend) SetClock(now func() time.Time) {
	b.now = now
}

// SetIDGenerator replaces the engine id generator in tests.
func (e *CookieEngine) SetIDGenerator(gen func() (string, error)) {
	e.newID = gen
}
