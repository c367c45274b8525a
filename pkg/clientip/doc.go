// Package clientip extracts client IP addresses from HTTP requests.
//
// RemoteAddr uses the direct peer only and is the safe default for binding a
// session to an address: a client cannot influence it.
//
// GetIP additionally honours proxy headers, checked in this order:
//  1. CF-Connecting-IP (Cloudflare)
//  2. DO-Connecting-IP (DigitalOcean)
//  3. X-Forwarded-For (leftmost entry)
//  4. X-Real-IP
//  5. RemoteAddr
//
// Use GetIP only behind a proxy that overwrites these headers.
//
// All addresses are validated with net.ParseIP and normalised, so
// "::ffff:192.0.2.1" and "192.0.2.1" compare equal. The unspecified address
// 0.0.0.0 is rejected. Neither function panics; when nothing parses, the raw
// RemoteAddr is returned.
//
//	ip := clientip.RemoteAddr(r)
package clientip
