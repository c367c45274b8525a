package logger

import (
	"log/slog"
	"time"
)

// Attribute helpers return an empty Attr for zero input so they can be passed
// unconditionally: log.Error("msg", logger.Error(err)). slog drops empty attrs.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component creates an attribute naming the subsystem that produced the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// RequestID creates an attribute for HTTP request IDs.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// ClientIP creates an attribute for client IP addresses.
func ClientIP(ip string) slog.Attr {
	if ip == "" {
		return slog.Attr{}
	}
	return slog.String("client_ip", ip)
}

// Method creates an attribute for HTTP methods.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path creates an attribute for URL paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// StatusCode creates an attribute for HTTP status codes.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// Latency creates an attribute for request latency.
func Latency(d time.Duration) slog.Attr {
	return slog.Duration("latency", d)
}

// RPCMethod creates an attribute for the "Class.method" target of an RPC call.
func RPCMethod(method string) slog.Attr {
	if method == "" {
		return slog.Attr{}
	}
	return slog.String("rpc_method", method)
}

// RPCError creates a group describing an RPC error envelope.
func RPCError(code int, message string) slog.Attr {
	return Group("rpc_error", slog.Int("code", code), slog.String("message", message))
}

// UserName creates an attribute for the signed-in user name.
func UserName(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("user_name", name)
}

// Secret creates an attribute that reveals only a short prefix of a token.
// Tokens must never be written to logs in full.
func Secret(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	const visible = 6
	if len(value) <= visible {
		return slog.String(key, "***")
	}
	return slog.String(key, value[:visible]+"***")
}
