package rpc

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/dmitrymomot/rpcgate/core/logger"
)

// fallbackBody is written when the envelope itself cannot be encoded.
const fallbackBody = `{"jsonrpc":2.0,"id":-1,"token":null,"error":{"code":108,"message":"An internal error occurred."}}`

// send encodes resp and writes it with status 200. Large bodies are gzipped
// when the client accepts it, except in debug mode.
func (g *Gateway) send(w http.ResponseWriter, r *http.Request, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		g.logger.ErrorContext(r.Context(), "encoding response failed", logger.Error(err))
		data = []byte(fallbackBody)
	}

	h := w.Header()
	h.Set("Content-Type", g.cfg.ContentType)
	h.Set("Cache-Control", "no-store")

	if len(data) > g.cfg.CompressThreshold && !g.cfg.Debug && acceptsGzip(r) {
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		w.WriteHeader(http.StatusOK)

		gz := gzip.NewWriter(w)
		if _, err := gz.Write(data); err != nil {
			g.logger.ErrorContext(r.Context(), "writing compressed response failed", logger.Error(err))
		}
		if err := gz.Close(); err != nil {
			g.logger.ErrorContext(r.Context(), "closing compressed response failed", logger.Error(err))
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		g.logger.ErrorContext(r.Context(), "writing response failed", logger.Error(err))
	}
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept-Encoding")), "gzip")
}
