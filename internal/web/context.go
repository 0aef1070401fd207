package web

import "net/http"

// requestFields are the log fields identifying who triggered an operation.
// RemoteAddr has already been rewritten by TrustedRealIP.
func requestFields(r *http.Request) []any {
	return []any{
		"ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	}
}
