package rpc

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/logger"
)

// Wildcard denies every method of a class.
const Wildcard = "*"

// reservedMethods are helper names that must never be remotely callable,
// whatever a class declares.
var reservedMethods = []string{
	"getCurrentPrincipal",
	"requireAuthenticatedUser",
	"requireRole",
	"requireAdministrator",
	"logEvent",
	"getLogger",
	"setLogger",
}

const forbiddenNameChars = "?*&^%$#@:>-\\/`,.()+=< \t\r\n"

// Registry decides which Class.method pairs may be called remotely.
// A method is callable iff its class is allowed, it is not denied
// individually or by a wildcard, and its name does not start with "_".
type Registry struct {
	mu      sync.RWMutex
	classes map[string]Class
	allowed map[string]struct{}
	denied  map[string]map[string]struct{}
	denyAll map[string]struct{}
	anon    map[string]map[string]struct{}
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. Nothing is callable until classes
// are both registered and allowed.
func NewRegistry(l *slog.Logger) *Registry {
	if l == nil {
		l = logger.NewNop()
	}
	return &Registry{
		classes: make(map[string]Class),
		allowed: make(map[string]struct{}),
		denied:  make(map[string]map[string]struct{}),
		denyAll: make(map[string]struct{}),
		anon:    make(map[string]map[string]struct{}),
		logger:  l.With(logger.Component("rpc.registry")),
	}
}

// Register adds class implementations. The reserved helper names are denied
// for every registered class.
func (r *Registry) Register(classes ...Class) error {
	for _, c := range classes {
		if c == nil {
			return fault.ErrInvalidArgument.WithMessage("Class must not be nil.")
		}
		if err := checkName("class", c.Name()); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range classes {
		if _, ok := r.classes[c.Name()]; ok {
			return fault.ErrInvalidArgument.WithMessagef("Class '%s' is already registered.", c.Name())
		}
	}
	for _, c := range classes {
		c.seal()
		r.classes[c.Name()] = c
		r.denyLocked(c.Name(), reservedMethods)
		r.logger.Debug("class registered", slog.String("class", c.Name()), slog.Any("methods", c.Methods()))
	}
	return nil
}

// Allow adds classes to the allow-list.
func (r *Registry) Allow(classes ...string) error {
	if len(classes) == 0 {
		return fault.ErrInvalidArgument.WithMessage("At least one class is required.")
	}
	for _, name := range classes {
		if err := checkName("class", name); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range classes {
		r.allowed[name] = struct{}{}
	}
	r.logger.Debug("classes allowed", slog.Any("classes", classes))
	return nil
}

// Disallow denies methods of class. A single "*" denies the whole class,
// including methods declared later; "*" cannot be combined with other names.
// Calling Disallow without methods is a no-op.
func (r *Registry) Disallow(class string, methods ...string) error {
	if err := checkName("class", class); err != nil {
		return err
	}

	if len(methods) == 1 && methods[0] == Wildcard {
		r.mu.Lock()
		r.denyAll[class] = struct{}{}
		r.mu.Unlock()
		r.logger.Debug("class disallowed", slog.String("class", class))
		return nil
	}

	for _, m := range methods {
		if m == Wildcard {
			r.logger.Error("wildcard combined with method names", slog.String("class", class))
			return fault.ErrInvalidArgument.WithMessage(
				"You cannot specify any other methods when specifying the '*' (disallow rpc calls to all methods of the class).")
		}
		if err := checkName("method", m); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.denyLocked(class, methods)
	r.mu.Unlock()
	r.logger.Debug("methods disallowed", slog.String("class", class), slog.Any("methods", methods))
	return nil
}

// AllowAnonymous exempts methods of class from the gateway's authentication
// requirement, e.g. the sign-in method. It does not make them callable: the
// allow/deny rules still apply.
func (r *Registry) AllowAnonymous(class string, methods ...string) error {
	if err := checkName("class", class); err != nil {
		return err
	}
	if len(methods) == 0 {
		return fault.ErrInvalidArgument.WithMessage("At least one method is required.")
	}
	for _, m := range methods {
		if err := checkName("method", m); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.anon[class]
	if !ok {
		set = make(map[string]struct{}, len(methods))
		r.anon[class] = set
	}
	for _, m := range methods {
		set[m] = struct{}{}
	}
	r.logger.Debug("methods allowed without authentication", slog.String("class", class), slog.Any("methods", methods))
	return nil
}

func (r *Registry) denyLocked(class string, methods []string) {
	if len(methods) == 0 {
		return
	}
	set, ok := r.denied[class]
	if !ok {
		set = make(map[string]struct{}, len(methods))
		r.denied[class] = set
	}
	for _, m := range methods {
		set[m] = struct{}{}
	}
}

// Check reports whether class.method passes the allow/deny rules. It does not
// require the method to exist; Resolve does.
func (r *Registry) Check(class, method string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkLocked(class, method)
}

func (r *Registry) checkLocked(class, method string) error {
	var reason string
	switch {
	case method == "" || strings.HasPrefix(method, "_"):
		reason = "method names starting with underscore are not callable"
	case !r.isAllowed(class):
		reason = "class is not allowed"
	case r.isDenied(class, method):
		reason = "method is disallowed"
	case r.isDeniedAll(class):
		reason = "all methods of the class are disallowed"
	default:
		return nil
	}
	r.logger.Error("method access denied",
		logger.RPCMethod(class+"."+method), slog.String("reason", reason))
	return fault.ErrMethodAccess
}

func (r *Registry) isAllowed(class string) bool {
	_, ok := r.allowed[class]
	return ok
}

func (r *Registry) isDenied(class, method string) bool {
	_, ok := r.denied[class][method]
	return ok
}

func (r *Registry) isDeniedAll(class string) bool {
	_, ok := r.denyAll[class]
	return ok
}

// resolve checks the rules and returns the method body.
func (r *Registry) resolve(class, method string) (target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkLocked(class, method); err != nil {
		return target{}, err
	}

	c, ok := r.classes[class]
	if !ok {
		r.logger.Error("class is allowed but not registered", logger.RPCMethod(class+"."+method))
		return target{}, fault.ErrMethodAccess
	}
	t, ok := c.lookup(method)
	if !ok || t.abstract {
		r.logger.Error("method is not accessible", logger.RPCMethod(class+"."+method))
		return target{}, fault.ErrMethodAccess
	}
	_, t.anonymous = r.anon[class][method]
	return t, nil
}

func checkName(kind, name string) error {
	if name == "" {
		return fault.ErrInvalidArgument.WithMessagef("The %s name must not be empty.", kind)
	}
	if strings.ContainsAny(name, forbiddenNameChars) {
		return fault.ErrInvalidArgument.WithMessagef("The %s name '%s' contains invalid characters.", kind, name)
	}
	return nil
}
