package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/rpcgate/core/cookie"
	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/logger"
	"github.com/dmitrymomot/rpcgate/pkg/token"
)

// Store is the process-wide session factory. It is safe for concurrent use;
// the Sessions it opens are not.
type Store struct {
	backend Backend
	cookies *cookie.Manager
	cfg     Config
}

// NewStore creates a session store over backend. Session ids travel in cookies
// written by cookies, signed when the cookie manager has secrets.
func NewStore(backend Backend, cookies *cookie.Manager, opts ...Option) (*Store, error) {
	return NewStoreFromConfig(DefaultConfig(), backend, cookies, opts...)
}

// NewStoreFromConfig creates a session store from configuration. Options override config.
func NewStoreFromConfig(cfg Config, backend Backend, cookies *cookie.Manager, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if cookies == nil {
		var err error
		if cookies, err = cookie.New(nil); err != nil {
			return nil, err
		}
	}
	return &Store{backend: backend, cookies: cookies, cfg: cfg.apply(opts)}, nil
}

// Open returns the Session for one request. Nothing is read until first access.
func (s *Store) Open(w http.ResponseWriter, r *http.Request) *Session {
	return &Session{
		engine: NewCookieEngine(w, r, s.backend, s.cookies, s.cfg),
		cfg:    s.cfg,
		log:    s.cfg.logger,
	}
}

// Session is the request-scoped session store. Every access starts or
// re-validates the underlying session, so a payload whose integrity token no
// longer matches its id is never read or written.
type Session struct {
	engine Engine
	cfg    Config
	log    *slog.Logger

	started   bool
	destroyed bool
	id        string
	token     string
	// rejected holds the integrity failure that invalidated the session; it
	// is returned for every access until Destroy.
	rejected error
}

// New wraps an arbitrary Engine. Most callers use Store.Open instead.
func New(engine Engine, opts ...Option) *Session {
	cfg := DefaultConfig().apply(opts)
	return &Session{engine: engine, cfg: cfg, log: cfg.logger}
}

// Get returns the value stored under key, or nil when absent.
func (s *Session) Get(ctx context.Context, key string) (any, error) {
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s.engine.Values()[key], nil
}

// GetString returns the value under key when it is a string, "" otherwise.
func (s *Session) GetString(ctx context.Context, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	str, _ := v.(string)
	return str, nil
}

// Set stores value under key. Values must be JSON-serialisable.
func (s *Session) Set(ctx context.Context, key string, value any) error {
	if _, err := json.Marshal(value); err != nil {
		return fault.ErrInvalidArgument.
			WithMessagef("session value for %q is not serialisable", key).
			WithCause(err)
	}
	if err := s.start(ctx); err != nil {
		return err
	}
	s.engine.Values()[key] = value
	return nil
}

// Remove deletes key and reports whether it was present.
func (s *Session) Remove(ctx context.Context, key string) (bool, error) {
	if err := s.start(ctx); err != nil {
		return false, err
	}
	values := s.engine.Values()
	_, ok := values[key]
	delete(values, key)
	return ok, nil
}

// ContainsKey reports whether key is present.
func (s *Session) ContainsKey(ctx context.Context, key string) (bool, error) {
	if err := s.start(ctx); err != nil {
		return false, err
	}
	_, ok := s.engine.Values()[key]
	return ok, nil
}

// Destroy expires the session cookie, drops every key and resets the store.
// A later access starts a brand new session.
func (s *Session) Destroy(ctx context.Context) error {
	err := s.engine.Destroy(ctx)
	s.started, s.id, s.token = false, "", ""
	s.destroyed, s.rejected = true, nil
	if err != nil {
		s.log.ErrorContext(ctx, "session destroy failed", logger.Component("session"), logger.Error(err))
		return fault.ErrInternal.WithCause(err)
	}
	s.log.DebugContext(ctx, "session destroyed", logger.Component("session"))
	return nil
}

// RegenerateID moves the session to a fresh id and stores the matching
// integrity token. When rotation fails the session is destroyed.
func (s *Session) RegenerateID(ctx context.Context) error {
	if err := s.start(ctx); err != nil {
		return err
	}

	if err := s.engine.RegenerateID(ctx); err != nil {
		s.log.ErrorContext(ctx, "session id rotation failed", logger.Component("session"), logger.Error(err))
		_ = s.Destroy(ctx)
		return fault.ErrInternal.WithMessage("session id could not be regenerated").WithCause(err)
	}

	id := s.engine.ID()
	s.id = id
	s.token = token.Hash(id)
	s.engine.Values()[s.cfg.TokenKey] = s.token
	s.log.DebugContext(ctx, "session id regenerated", logger.Component("session"))
	return nil
}

// Lifetime returns the configured session lifetime in seconds.
func (s *Session) Lifetime() int {
	return int(s.cfg.TTL / time.Second)
}

// Commit persists pending changes. It does nothing when the session was never
// started during this request.
func (s *Session) Commit(ctx context.Context) error {
	if !s.started {
		return nil
	}
	if err := s.engine.Commit(ctx); err != nil {
		return fault.ErrInternal.WithCause(err)
	}
	return nil
}

// Started reports whether the session has been started in this request.
func (s *Session) Started() bool { return s.started }

// Destroyed reports whether the session was destroyed and not restarted since.
func (s *Session) Destroyed() bool { return s.destroyed && !s.started }

// ID returns the current session id, or "" before the first access.
func (s *Session) ID() string { return s.id }

func (s *Session) start(ctx context.Context) error {
	if s.started {
		return s.validate()
	}
	if s.rejected != nil {
		return s.rejected
	}

	if s.engine.Active() || s.engine.ID() != "" {
		return s.reject(ctx, "session was started outside the session store")
	}
	if err := s.engine.Start(ctx); err != nil {
		s.log.ErrorContext(ctx, "session start failed", logger.Component("session"), logger.Error(err))
		return fault.ErrInvalidSessionState.WithCause(err)
	}

	id := s.engine.ID()
	expected := token.Hash(id)
	values := s.engine.Values()

	stored, present := values[s.cfg.TokenKey]
	if !present {
		values[s.cfg.TokenKey] = expected
		s.log.DebugContext(ctx, "session created", logger.Component("session"))
	} else if str, ok := stored.(string); !ok || !token.Equal(str, expected) {
		return s.invalidate(ctx, "session token does not match session id")
	}

	s.id, s.token = id, expected
	s.started, s.destroyed = true, false
	return nil
}

func (s *Session) validate() error {
	id := s.engine.ID()
	if id == "" || id != s.id {
		return fault.ErrInvalidSessionState.WithMessage("session id changed outside the session store")
	}
	stored, _ := s.engine.Values()[s.cfg.TokenKey].(string)
	if stored != token.Hash(id) || stored != s.token {
		return fault.ErrInvalidSessionState.WithMessage("session token was modified")
	}
	return nil
}

// invalidate rejects a started session and removes it from the backend.
func (s *Session) invalidate(ctx context.Context, reason string) error {
	err := s.reject(ctx, reason)
	if derr := s.engine.Destroy(ctx); derr != nil {
		s.log.ErrorContext(ctx, "invalid session could not be destroyed",
			logger.Component("session"), logger.Error(derr))
	}
	s.started, s.id, s.token = false, "", ""
	s.destroyed, s.rejected = true, err
	return err
}

func (s *Session) reject(ctx context.Context, reason string) error {
	s.log.ErrorContext(ctx, "session rejected", logger.Component("session"), slog.String("reason", reason))
	return fault.ErrInvalidSessionState.WithMessage(reason)
}
