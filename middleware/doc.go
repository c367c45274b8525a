// Package middleware holds the net/http middleware mounted in front of the
// gateway: request IDs, access logging and security headers.
//
//	h := middleware.Chain(gateway,
//		middleware.RequestID(),
//		middleware.Logging(log),
//		middleware.SecurityHeaders(),
//	)
//
// Register RequestIDExtractor with the logger so every record written with a
// request context carries the request ID.
package middleware
