package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Headers checked by GetIP, in priority order.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP returns the client address taking proxy headers into account.
// Only use it behind a proxy that overwrites these headers; otherwise a client
// can choose its own address. Falls back to RemoteAddr.
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		// X-Forwarded-For: client, proxy1, proxy2
		if header == "X-Forwarded-For" {
			value, _, _ = strings.Cut(value, ",")
		}
		if ip := normalize(value); ip != "" {
			return ip
		}
	}
	return RemoteAddr(r)
}

// RemoteAddr returns the address of the direct peer without consulting headers.
// Returns the raw RemoteAddr when it cannot be parsed.
func RemoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := normalize(host); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func normalize(value string) string {
	ip := net.ParseIP(strings.TrimSpace(value))
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
