package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// auditLog emits a structured audit log entry for an action taken through
// a session.
func auditLog(r *http.Request, action string, sessionID string, detail ...any) {
	attrs := make([]any, 0, 8+len(detail))
	attrs = append(attrs,
		"action", action,
		"session", sessionID,
		"ip", clientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	)
	slog.Info("audit", append(attrs, detail...)...)
}

// clientIP is the originating address without its port: the first
// X-Forwarded-For hop when a proxy set one, else the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
