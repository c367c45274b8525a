// Package cookie manages HTTP cookies with shared defaults and optional HMAC
// signing.
//
// The gateway uses two cookies: the session identifier (signed when secrets
// are configured) and the mirrored RPC token (plain, compared verbatim).
//
//	cm, err := cookie.New([]string{os.Getenv("COOKIE_SECRET")},
//		cookie.WithSameSite(http.SameSiteStrictMode),
//	)
//
//	err = cm.SetSigned(w, r, "RPCSESSID", sessionID, cookie.WithHTTPOnly(true))
//	id, err := cm.GetSigned(r, "RPCSESSID")
//	cm.Delete(w, "RPCSESSID")
//
// Secrets rotate by prepending the new secret: the first one signs, every one
// verifies. Cookies are marked Secure automatically for TLS requests.
package cookie
