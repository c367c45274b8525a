package auth

import (
	"context"
	"time"
)

// User is a membership record as seen by authentication.
type User struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	JoinedAt         time.Time `json:"joined_at"`
	LastLoginAt      time.Time `json:"last_login_at,omitzero"`
	LastLoginIP      string    `json:"last_login_ip,omitempty"`
	LastActivityAt   time.Time `json:"last_activity_at,omitzero"`
	LockedOut        bool      `json:"locked_out"`
	LockedOutAt      time.Time `json:"locked_out_at,omitzero"`
	LockedOutMessage string    `json:"locked_out_message,omitempty"`
	AuthToken        string    `json:"-"`
	Builtin          bool      `json:"builtin"`
}

// Clone returns a copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// UserStore is the membership store consulted by authentication.
type UserStore interface {
	// ValidateCredentials reports whether name/password match an unlocked user.
	ValidateCredentials(ctx context.Context, name, password string) (bool, error)
	// FindByName returns the user or nil when no such user exists.
	FindByName(ctx context.Context, name string) (*User, error)
	// Save persists the mutable fields of an existing user.
	Save(ctx context.Context, user *User) error
	// CurrentAuthToken returns the persisted auth token, "" when none is set.
	CurrentAuthToken(ctx context.Context, name string) (string, error)
	// IsOnline reports whether the user was active within the online window.
	IsOnline(ctx context.Context, name string) (bool, error)
}

// RoleStore resolves role membership.
type RoleStore interface {
	RolesForUser(ctx context.Context, name string) ([]string, error)
}

// ActivityTracker is implemented by user stores that record last activity.
// When present, resolving the current user refreshes the activity timestamp.
type ActivityTracker interface {
	Touch(ctx context.Context, name string) error
}
