package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrymomot/rpcgate/core/auth"
	"github.com/dmitrymomot/rpcgate/core/cookie"
	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/logger"
	"github.com/dmitrymomot/rpcgate/core/session"
	"github.com/dmitrymomot/rpcgate/pkg/clientip"
	"github.com/dmitrymomot/rpcgate/pkg/token"
)

// Gateway serves remote calls over a single POST endpoint.
// Every outcome, including panics in methods, is written as an envelope with
// HTTP status 200.
type Gateway struct {
	registry *Registry
	sessions *session.Store
	auth     *auth.Manager
	cookies  *cookie.Manager
	cfg      Config
	logger   *slog.Logger
	remoteIP func(*http.Request) string
}

// New creates a gateway with the default configuration.
func New(registry *Registry, sessions *session.Store, opts ...Option) (*Gateway, error) {
	return NewFromConfig(DefaultConfig(), registry, sessions, opts...)
}

// NewFromConfig creates a gateway from configuration. Options override config.
func NewFromConfig(cfg Config, registry *Registry, sessions *session.Store, opts ...Option) (*Gateway, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if sessions == nil {
		return nil, ErrNilSessions
	}

	g := &Gateway{
		registry: registry,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.cfg = g.cfg.withDefaults()

	if g.cfg.Rotation != RotationAuto && g.cfg.Rotation != RotationManual {
		return nil, ErrInvalidRotation
	}
	if g.cfg.RequireAuth && g.auth == nil {
		return nil, ErrAuthRequired
	}
	if g.cookies == nil {
		cm, err := cookie.New(nil)
		if err != nil {
			return nil, err
		}
		g.cookies = cm
	}
	if g.remoteIP == nil {
		g.remoteIP = clientip.RemoteAddr
		if g.cfg.TrustProxy {
			g.remoteIP = clientip.GetIP
		}
	}
	g.logger = g.logger.With(logger.Component("rpc"))
	return g, nil
}

// Config returns the effective configuration.
func (g *Gateway) Config() Config { return g.cfg }

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	sess := g.sessions.Open(w, r)
	resp := &Response{ID: noID}

	defer func() {
		if rec := recover(); rec != nil {
			g.logger.ErrorContext(ctx, "rpc request panicked",
				slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
			resp.fail(fault.ErrInternal)
			g.send(w, r, resp)
		}
	}()

	g.logger.DebugContext(ctx, "rpc request started")
	g.process(ctx, w, r, sess, resp)

	if err := sess.Commit(ctx); err != nil {
		g.logger.ErrorContext(ctx, "session commit failed", logger.Error(err))
		if resp.Error == nil {
			resp.fail(err)
		}
	}
	g.mirrorToken(w, r, sess, resp)
	g.send(w, r, resp)

	g.logger.DebugContext(ctx, "rpc request ended", logger.Latency(time.Since(start)))
}

// process runs the validation pipeline and the invocation, recording the
// outcome in resp.
func (g *Gateway) process(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *session.Session, resp *Response) {
	log := g.logger
	fail := func(err error, msg string, attrs ...slog.Attr) {
		fe := resp.fail(err)
		attrs = append(attrs, logger.RPCError(fe.Code, fe.Message), logger.Error(errors.Unwrap(fe)))
		log.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}

	// Transport.
	if r.Method != http.MethodPost {
		fail(fault.ErrBadRequest.WithMessage("Only POST requests are allowed."), "invalid http method",
			logger.Method(r.Method))
		return
	}
	if ct := r.Header.Get("Content-Type"); !hasPrefixFold(ct, g.cfg.ContentType) {
		fail(fault.ErrBadRequest.WithMessage("Invalid content type."), "invalid content type",
			slog.String("expected", g.cfg.ContentType), slog.String("received", ct))
		return
	}

	// Remote address binding.
	ip := g.remoteIP(r)
	log = log.With(logger.ClientIP(ip))
	pinned, err := sess.GetString(ctx, g.cfg.IPSessionKey)
	if err != nil {
		fail(err, "session unavailable")
		return
	}
	if pinned != "" && pinned != ip {
		fail(fault.ErrSessionExpired, "remote address changed", slog.String("session_ip", pinned))
		return
	}
	if err := sess.Set(ctx, g.cfg.IPSessionKey, ip); err != nil {
		fail(err, "pinning remote address failed")
		return
	}

	// Body.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.cfg.MaxBodyBytes))
	if err != nil {
		fail(fault.ErrBadRequest.WithMessage("The request data cannot be read.").WithCause(err), "reading request failed")
		return
	}
	req, err := DecodeRequest(body)
	if req != nil {
		resp.ID = req.ID
	}
	if err != nil {
		fail(err, "decoding request failed")
		return
	}

	if !req.CheckVersion() {
		fail(fault.ErrBadRequest.WithMessage("Invalid JSON-RPC version."), "invalid protocol version",
			slog.String("version", string(req.Version)))
		return
	}

	// Token.
	current, err := sess.GetString(ctx, g.cfg.TokenSessionKey)
	if err != nil {
		fail(err, "session unavailable")
		return
	}
	if current != "" {
		mirrored, _ := g.cookies.Get(r, g.cfg.TokenCookie)
		if req.Token == nil || !token.Equal(*req.Token, current) || !token.Equal(*req.Token, mirrored) {
			fail(fault.ErrSessionExpired, "rpc token mismatch",
				logger.Secret("session_token", current), logger.Secret("request_token", deref(req.Token)))
			return
		}
	} else if req.Token != nil && *req.Token != "" {
		fail(fault.ErrSessionExpired, "rpc token supplied but none was issued")
		return
	}

	if g.cfg.Rotation == RotationAuto {
		if current, err = token.Random(); err != nil {
			fail(fault.ErrInternal.WithCause(err), "generating rpc token failed")
			return
		}
		if err := sess.Set(ctx, g.cfg.TokenSessionKey, current); err != nil {
			fail(err, "storing rpc token failed")
			return
		}
	}
	resp.Token = optional(current)

	// Method resolution.
	class, method, ok := splitMethod(req.Method)
	if !ok {
		fail(fault.ErrBadRequest.WithMessage("The method was not specified."), "method was not specified")
		return
	}
	log = log.With(logger.RPCMethod(req.Method))

	t, err := g.registry.resolve(class, method)
	if err != nil {
		fail(err, "method resolution failed")
		return
	}

	// Invocation.
	call := &Call{
		ctx:      ctx,
		sess:     sess,
		cfg:      g.cfg,
		class:    class,
		method:   method,
		remoteIP: ip,
		logger:   log,
	}
	if g.auth != nil {
		call.auth = g.auth.Begin(sess, ip)
	}

	result, err := g.invoke(call, t, req.Params)

	switch {
	case sess.Destroyed():
		// The token died with the session.
		resp.Token = nil
	case g.cfg.Rotation == RotationManual:
		// The method may have rotated the token.
		tok, terr := sess.GetString(ctx, g.cfg.TokenSessionKey)
		if terr != nil && err == nil {
			err = terr
		}
		resp.Token = optional(tok)
	}

	if err != nil {
		fail(err, "method failed")
		return
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		fail(fault.ErrInternal.WithCause(err), "encoding result failed")
		return
	}
	resp.Result = encoded
	log.DebugContext(ctx, "method succeeded")
}

// invoke runs the policy hook and the method, converting panics into
// fault.ErrInternal.
func (g *Gateway) invoke(c *Call, t target, args Args) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.ErrorContext(c.ctx, "method panicked",
				slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
			result, err = nil, fault.ErrInternal.WithCause(fmt.Errorf("panic: %v", rec))
		}
	}()

	if g.cfg.RequireAuth && !t.anonymous {
		if err := c.RequireAuthenticatedUser(false); err != nil {
			return nil, err
		}
	}
	return t.invoke(c, args)
}

// mirrorToken writes the response token to the token cookie, or expires the
// cookie when the session was destroyed.
func (g *Gateway) mirrorToken(w http.ResponseWriter, r *http.Request, sess *session.Session, resp *Response) {
	switch {
	case resp.Token != nil:
		if err := g.cookies.Set(w, r, g.cfg.TokenCookie, *resp.Token); err != nil {
			g.logger.ErrorContext(r.Context(), "writing token cookie failed", logger.Error(err))
		}
	case sess.Destroyed():
		g.cookies.Delete(w, g.cfg.TokenCookie)
	}
}

func splitMethod(m string) (class, method string, ok bool) {
	parts := strings.Split(m, ".")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
