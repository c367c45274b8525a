package session

import "errors"

var (
	// ErrNotFound is returned by a Backend when no payload exists for the id.
	ErrNotFound = errors.New("session not found")
	// ErrNotActive is returned by an Engine operation that needs a started session.
	ErrNotActive = errors.New("session is not active")
	// ErrIDGeneration is returned when a new session id cannot be produced.
	ErrIDGeneration = errors.New("failed to generate session id")
	// ErrSaveSession is returned when saving a session to the backend fails.
	ErrSaveSession = errors.New("failed to save session")
	// ErrDeleteSession is returned when deleting a session from the backend fails.
	ErrDeleteSession = errors.New("failed to delete session")
	// ErrNilBackend is returned when a store is built without a backend.
	ErrNilBackend = errors.New("session backend is required")
)
