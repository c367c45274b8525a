// Package token generates the opaque values used by the gateway.
//
//   - Random: anti-CSRF RPC tokens (32 random bytes, base64url).
//   - Hash: one-way BLAKE3 digest binding a session payload to its identifier.
//   - Derive: authentication tokens built from two independent random salts.
//   - Equal: constant-time comparison.
//
// Usage:
//
//	rpcToken, err := token.Random()
//	sessionToken := token.Hash(sessionID)
//	authToken, err := token.Derive()
//	if !token.Equal(presented, stored) {
//		return fault.ErrSessionExpired
//	}
package token
