package demo

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/dmitrymomot/rpcgate/core/auth"
	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/logger"
	"github.com/dmitrymomot/rpcgate/core/rpc"
	"github.com/dmitrymomot/rpcgate/pkg/membership"
	"github.com/dmitrymomot/rpcgate/pkg/ratelimiter"
)

// Users is the membership backend the demo needs. Both membership.Store and
// pg.MembershipStore satisfy it.
type Users interface {
	auth.UserStore
	auth.RoleStore
	Create(ctx context.Context, nu membership.NewUser) (*auth.User, error)
	UpdateProfile(ctx context.Context, name, email, firstName, lastName string) error
	CountOnline(ctx context.Context) (int, error)
	CreateRole(ctx context.Context, role membership.Role) error
	AddUserToRoles(ctx context.Context, name string, roles ...string) error
}

// CurrentUser is the result of UserRpc.getCurrentUser.
type CurrentUser struct {
	Name string `json:"name"`
	Auth bool   `json:"auth"`
}

// Profile is the result of UserRpc.getUserProfile.
type Profile struct {
	UserName  string `json:"userName"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// userRPC implements the UserRpc class.
type userRPC struct {
	users Users
	call  *rpc.Call
}

// maxPasswordLength bounds passwords chosen at registration.
const maxPasswordLength = 32

// errTooManyAttempts is returned by signIn once a client exhausts its attempts.
var errTooManyAttempts = fault.ErrAuthenticationFailed.WithMessage("Too many sign-in attempts. Try again later.")

// UserClass declares the UserRpc class over users. A non-nil limiter
// throttles signIn per client address.
func UserClass(users Users, limiter *ratelimiter.Bucket) *rpc.ClassDef[userRPC] {
	statics := &userStatics{users: users, limiter: limiter}
	return rpc.NewClass("UserRpc", func(c *rpc.Call) (*userRPC, error) {
		return &userRPC{users: users, call: c}, nil
	}).
		Method("getCurrentUser", (*userRPC).getCurrentUser).
		Method("getUserProfile", (*userRPC).getUserProfile).
		Method("updateUserProfile", (*userRPC).updateUserProfile).
		Method("countOnlineUsers", (*userRPC).countOnlineUsers).
		Static("signIn", statics.signIn).
		Static("signOut", statics.signOut).
		Static("register", statics.register)
}

func (u *userRPC) getCurrentUser(_ *rpc.Call, _ rpc.Args) (any, error) {
	p, err := u.call.Principal()
	if err != nil {
		return nil, err
	}
	return CurrentUser{Name: p.Name(), Auth: p.IsAuthenticated()}, nil
}

func (u *userRPC) getUserProfile(c *rpc.Call, _ rpc.Args) (any, error) {
	if err := c.RequireAuthenticatedUser(false); err != nil {
		return nil, err
	}
	user, err := c.Auth().CurrentUser(c.Context())
	if err != nil {
		return nil, err
	}
	return Profile{
		UserName:  user.Name,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

func (u *userRPC) updateUserProfile(c *rpc.Call, args rpc.Args) (any, error) {
	if err := c.RequireAuthenticatedUser(false); err != nil {
		return nil, err
	}
	var email, firstName, lastName string
	if err := args.Strings(&email, &firstName, &lastName); err != nil {
		return nil, err
	}
	name, err := c.Auth().CurrentUserName(c.Context())
	if err != nil {
		return nil, err
	}
	if err := u.users.UpdateProfile(c.Context(), name, email, firstName, lastName); err != nil {
		return nil, err
	}
	return nil, nil
}

func (u *userRPC) countOnlineUsers(c *rpc.Call, _ rpc.Args) (any, error) {
	if err := c.Auth().RequireAdministrator(c.Context()); err != nil {
		return nil, err
	}
	return u.users.CountOnline(c.Context())
}

type userStatics struct {
	users   Users
	limiter *ratelimiter.Bucket
}

// signIn authenticates and, with manual rotation, issues a new RPC token.
func (s *userStatics) signIn(c *rpc.Call, args rpc.Args) (any, error) {
	var name, pass string
	if err := args.Strings(&name, &pass); err != nil {
		return nil, err
	}
	if err := s.throttle(c); err != nil {
		return nil, err
	}
	if err := c.Auth().SignIn(c.Context(), name, pass); err != nil {
		return nil, err
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(c.Context(), signInKey(c)); err != nil {
			c.Logger().ErrorContext(c.Context(), "resetting sign-in limit failed", logger.Error(err))
		}
	}
	if err := rotateIfManual(c); err != nil {
		return nil, err
	}
	return nil, nil
}

// signOut ends the session. With manual rotation the fresh session gets a token.
func (s *userStatics) signOut(c *rpc.Call, _ rpc.Args) (any, error) {
	if err := c.Auth().SignOut(c.Context()); err != nil {
		return nil, err
	}
	if err := rotateIfManual(c); err != nil {
		return nil, err
	}
	return nil, nil
}

// register creates a regular user from (userName, email, firstName, lastName, password).
func (s *userStatics) register(c *rpc.Call, args rpc.Args) (any, error) {
	var nu membership.NewUser
	if err := args.Strings(&nu.Name, &nu.Email, &nu.FirstName, &nu.LastName, &nu.Password); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(nu.Password) > maxPasswordLength {
		return nil, fault.ErrInvalidArgument.WithMessagef("Password must be at most %d characters.", maxPasswordLength)
	}

	user, err := s.users.Create(c.Context(), nu)
	if err != nil {
		return nil, err
	}
	c.Logger().InfoContext(c.Context(), "user registered", logger.UserName(user.Name))
	return nil, nil
}

func (s *userStatics) throttle(c *rpc.Call) error {
	if s.limiter == nil {
		return nil
	}
	res, err := s.limiter.Allow(c.Context(), signInKey(c))
	if err != nil {
		return fault.ErrInternal.WithCause(err)
	}
	if !res.Allowed() {
		c.Logger().WarnContext(c.Context(), "sign-in throttled",
			slog.Duration("retry_after", res.RetryAfter()))
		return errTooManyAttempts
	}
	return nil
}

func signInKey(c *rpc.Call) string { return "signin:" + c.RemoteIP() }

func rotateIfManual(c *rpc.Call) error {
	if c.Rotation() != rpc.RotationManual {
		return nil
	}
	return c.RotateToken()
}
