package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/rpcgate/core/cookie"
)

// Engine is the underlying transport session: it owns the session id, the
// client-visible cookie and the payload. Session layers integrity checks on top.
type Engine interface {
	// ID returns the current session id, or "" when no session is active.
	ID() string
	// Active reports whether Start has been called and Destroy has not.
	Active() bool
	// Start resumes the session named by the request or creates a new one.
	Start(ctx context.Context) error
	// Values returns the live payload of the active session.
	Values() Values
	// RegenerateID moves the payload to a fresh id and drops the old one.
	RegenerateID(ctx context.Context) error
	// Destroy removes the payload, expires the client cookie and deactivates the engine.
	Destroy(ctx context.Context) error
	// Commit persists the payload of an active session.
	Commit(ctx context.Context) error
}

// CookieEngine is an Engine that carries the session id in a cookie and keeps
// the payload in a Backend. One CookieEngine serves exactly one request.
type CookieEngine struct {
	w       http.ResponseWriter
	r       *http.Request
	backend Backend
	cookies *cookie.Manager
	cfg     Config

	id     string
	values Values
	active bool
	newID  func() (string, error)
}

// NewCookieEngine creates an engine bound to one request/response pair.
func NewCookieEngine(w http.ResponseWriter, r *http.Request, backend Backend, cookies *cookie.Manager, cfg Config) *CookieEngine {
	return &CookieEngine{
		w:       w,
		r:       r,
		backend: backend,
		cookies: cookies,
		cfg:     cfg,
		newID:   generateID,
	}
}

// ID implements Engine.
func (e *CookieEngine) ID() string { return e.id }

// Active implements Engine.
func (e *CookieEngine) Active() bool { return e.active }

// Values implements Engine.
func (e *CookieEngine) Values() Values { return e.values }

// Start implements Engine.
// An id from the cookie is only resumed when the backend knows it; unknown ids
// are replaced so a client cannot choose its own session id.
func (e *CookieEngine) Start(ctx context.Context) error {
	if e.active {
		return nil
	}

	if id, err := e.cookies.GetSigned(e.r, e.cfg.CookieName); err == nil && id != "" {
		values, err := e.backend.Load(ctx, id)
		switch {
		case err == nil:
			e.id, e.values, e.active = id, values, true
			return nil
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}

	id, err := e.newID()
	if err != nil {
		return errors.Join(ErrIDGeneration, err)
	}
	if err := e.writeCookie(id); err != nil {
		return err
	}
	e.id, e.values, e.active = id, Values{}, true
	return nil
}

// RegenerateID implements Engine.
func (e *CookieEngine) RegenerateID(ctx context.Context) error {
	if !e.active {
		return ErrNotActive
	}

	id, err := e.newID()
	if err != nil {
		return errors.Join(ErrIDGeneration, err)
	}
	if err := e.backend.Save(ctx, id, e.values, e.cfg.TTL); err != nil {
		return errors.Join(ErrSaveSession, err)
	}
	if err := e.backend.Delete(ctx, e.id); err != nil {
		return e.discard(ctx, id, errors.Join(ErrDeleteSession, err))
	}
	if err := e.writeCookie(id); err != nil {
		return e.discard(ctx, id, err)
	}
	e.id = id
	return nil
}

// discard drops the copy saved under id by a rotation that failed later on.
func (e *CookieEngine) discard(ctx context.Context, id string, cause error) error {
	if err := e.backend.Delete(ctx, id); err != nil {
		return errors.Join(cause, ErrDeleteSession, err)
	}
	return cause
}

// Destroy implements Engine.
func (e *CookieEngine) Destroy(ctx context.Context) error {
	var err error
	if e.id != "" {
		if derr := e.backend.Delete(ctx, e.id); derr != nil {
			err = errors.Join(ErrDeleteSession, derr)
		}
	}
	e.cookies.Delete(e.w, e.cfg.CookieName, e.cookieOptions()...)
	e.id, e.values, e.active = "", nil, false
	return err
}

// Commit implements Engine. Committing an inactive engine is a no-op.
func (e *CookieEngine) Commit(ctx context.Context) error {
	if !e.active {
		return nil
	}
	if err := e.backend.Save(ctx, e.id, e.values, e.cfg.TTL); err != nil {
		return errors.Join(ErrSaveSession, err)
	}
	return nil
}

func (e *CookieEngine) writeCookie(id string) error {
	opts := append(e.cookieOptions(), cookie.WithMaxAge(int(e.cfg.TTL/time.Second)))
	return e.cookies.SetSigned(e.w, e.r, e.cfg.CookieName, id, opts...)
}

func (e *CookieEngine) cookieOptions() []cookie.Option {
	opts := []cookie.Option{
		cookie.WithHTTPOnly(e.cfg.HTTPOnly),
		cookie.WithPath(e.cfg.CookiePath),
	}
	if e.cfg.CookieDomain != "" {
		opts = append(opts, cookie.WithDomain(e.cfg.CookieDomain))
	}
	return opts
}

func generateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
