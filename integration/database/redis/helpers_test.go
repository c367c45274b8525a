package redis_test

import (
	"net/http"
	"net/http/httptest"
)

func newRoundTrip(cookies []*http.Cookie) (*httptest.ResponseRecorder, *http.Request) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	for _, c := range cookies {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return httptest.NewRecorder(), r
}
