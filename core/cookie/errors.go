package cookie

import (
	"errors"
	"fmt"
)

var (
	// ErrSecretTooShort indicates a signing secret shorter than 32 characters.
	ErrSecretTooShort = errors.New("secret must be at least 32 characters long")
	// ErrInvalidSignature indicates a signed cookie failed verification.
	ErrInvalidSignature = errors.New("cookie signature verification failed")
	// ErrCookieNotFound indicates the requested cookie is absent.
	ErrCookieNotFound = errors.New("cookie not found in request")
	// ErrInvalidFormat indicates a signed cookie value could not be decoded.
	ErrInvalidFormat = errors.New("invalid cookie format")
)

// ErrCookieTooLarge indicates the cookie exceeds the maximum allowed size.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

// Error implements the error interface.
func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie %q size %d exceeds maximum %d bytes", e.Name, e.Size, e.Max)
}
