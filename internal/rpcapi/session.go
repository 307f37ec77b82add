package rpcapi

import (
	"net/http"
)

// sessionIDHeader and sessionIDValue implement the torrent-daemon dialect's
// CSRF-style handshake with a constant session ID — the bridge never needs
// per-client session state since it trusts basic auth.
const (
	sessionIDHeader = "X-Transmission-Session-Id"
	sessionIDValue  = "useless-session-id"
)

// sessionAndAuth checks basic auth before the session-ID handshake, so a
// bad-auth request always gets 403 even if it is also missing the session
// header.
func (s *Server) sessionAndAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.username || pass != s.password {
			http.Error(w, "Unauthorized", http.StatusForbidden)
			return
		}

		// Any GET is a handshake probe — it always gets 409 plus the header,
		// signalling the client to retry as a POST with that header set.
		if r.Method == http.MethodGet {
			w.Header().Set(sessionIDHeader, sessionIDValue)
			w.WriteHeader(http.StatusConflict)
			return
		}

		if r.Header.Get(sessionIDHeader) != sessionIDValue {
			w.Header().Set(sessionIDHeader, sessionIDValue)
			w.WriteHeader(http.StatusConflict)
			return
		}

		next.ServeHTTP(w, r)
	})
}
