package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/rpcgate/pkg/clientip"
)

func newRequest(remoteAddr string, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	r.RemoteAddr = remoteAddr
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestRemoteAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "ipv4 with port", remoteAddr: "192.0.2.10:5555", want: "192.0.2.10"},
		{name: "ipv6 with port", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "without port", remoteAddr: "192.0.2.11", want: "192.0.2.11"},
		{name: "ignores headers", remoteAddr: "192.0.2.12:1", headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, want: "192.0.2.12"},
		{name: "unparseable kept raw", remoteAddr: "pipe", want: "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, clientip.RemoteAddr(newRequest(tt.remoteAddr, tt.headers)))
		})
	}
}

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "cloudflare first", headers: map[string]string{"CF-Connecting-IP": "203.0.113.1", "X-Real-IP": "203.0.113.2"}, want: "203.0.113.1"},
		{name: "leftmost forwarded", headers: map[string]string{"X-Forwarded-For": "203.0.113.3, 10.0.0.1"}, want: "203.0.113.3"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.4"}, want: "203.0.113.4"},
		{name: "invalid header skipped", headers: map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "203.0.113.5"}, want: "203.0.113.5"},
		{name: "unspecified rejected", headers: map[string]string{"X-Real-IP": "0.0.0.0"}, want: "192.0.2.1"},
		{name: "fallback to remote", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, clientip.GetIP(newRequest("192.0.2.1:1234", tt.headers)))
		})
	}
}
