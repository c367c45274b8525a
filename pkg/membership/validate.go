package membership

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrymomot/rpcgate/core/fault"
)

// Field limits shared by every membership backend.
const (
	MaxUserNameLength  = 20
	MaxEmailLength     = 128
	MaxFirstNameLength = 60
	MaxLastNameLength  = 30
	MaxLockReason      = 255
)

// NewUser describes a user to create.
type NewUser struct {
	Name      string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Builtin   bool
}

// Validate checks field presence and limits.
func (u NewUser) Validate() error {
	if err := ValidateUserName(u.Name); err != nil {
		return err
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.Password == "" {
		return fault.ErrInvalidArgument.WithMessage("Password is required.")
	}
	return ValidateProfile(u.FirstName, u.LastName)
}

// ValidateUserName checks a user name: non-empty, no surrounding spaces, at most 20 characters.
func ValidateUserName(name string) error {
	switch {
	case name == "":
		return fault.ErrInvalidArgument.WithMessage("User name is required.")
	case strings.TrimSpace(name) != name:
		return fault.ErrInvalidArgument.WithMessage("User name must not start or end with spaces.")
	case utf8.RuneCountInString(name) > MaxUserNameLength:
		return fault.ErrInvalidArgument.WithMessagef("User name must be at most %d characters.", MaxUserNameLength)
	}
	return nil
}

// ValidateEmail checks an e-mail address.
func ValidateEmail(email string) error {
	if email == "" {
		return fault.ErrInvalidArgument.WithMessage("E-mail address is required.")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return fault.ErrInvalidArgument.WithMessagef("E-mail address must be at most %d characters.", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fault.ErrInvalidArgument.WithMessage("E-mail address is not valid.")
	}
	return nil
}

// ValidateProfile checks the editable profile fields.
func ValidateProfile(firstName, lastName string) error {
	if utf8.RuneCountInString(firstName) > MaxFirstNameLength {
		return fault.ErrInvalidArgument.WithMessagef("First name must be at most %d characters.", MaxFirstNameLength)
	}
	if utf8.RuneCountInString(lastName) > MaxLastNameLength {
		return fault.ErrInvalidArgument.WithMessagef("Last name must be at most %d characters.", MaxLastNameLength)
	}
	return nil
}
