package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/zeebo/blake3"
)

// DefaultSize is the number of random bytes used by Random.
const DefaultSize = 32

// ErrInvalidSize is returned when a non-positive token size is requested.
var ErrInvalidSize = errors.New("token: size must be positive")

// Random returns DefaultSize random bytes encoded as base64url without padding.
func Random() (string, error) {
	return RandomN(DefaultSize)
}

// RandomN returns n random bytes encoded as base64url without padding.
func RandomN(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidSize
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash returns the hex-encoded BLAKE3 digest of value. It is one-way and
// deterministic, suitable for binding a stored value to an identifier.
func Hash(value string) string {
	sum := blake3.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Derive hashes two independently generated random salts together. The result
// reveals nothing about either salt.
func Derive() (string, error) {
	var salts [2 * DefaultSize]byte
	if _, err := rand.Read(salts[:DefaultSize]); err != nil {
		return "", err
	}
	if _, err := rand.Read(salts[DefaultSize:]); err != nil {
		return "", err
	}

	h := blake3.New()
	_, _ = h.Write(salts[:DefaultSize])
	_, _ = h.Write(salts[DefaultSize:])
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
