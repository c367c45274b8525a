package rpc

import "errors"

var (
	// ErrInvalidRotation is returned for a rotation policy other than auto or manual.
	ErrInvalidRotation = errors.New("rpc: token rotation must be \"auto\" or \"manual\"")
	// ErrNilRegistry is returned when a gateway is built without a registry.
	ErrNilRegistry = errors.New("rpc: registry is required")
	// ErrNilSessions is returned when a gateway is built without a session store.
	ErrNilSessions = errors.New("rpc: session store is required")
	// ErrAuthRequired is returned when RequireAuth is set without an auth manager.
	ErrAuthRequired = errors.New("rpc: RequireAuth needs an auth manager")
)
