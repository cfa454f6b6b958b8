// Package netx contains small networking helpers shared by the HTTP layer.
package netx

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the originating client address of an HTTP request.
// When the request passed through a proxy the first entry of the
// X-Forwarded-For header wins; otherwise the host part of RemoteAddr is used.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// first hop is the original client
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if addr := strings.TrimSpace(r.RemoteAddr); addr != "" {
			return addr
		}
		return "unknown"
	}
	return host
}
