package server

import (
	"errors"
	"net/http"

	"mdm/internal/auth"
	"mdm/internal/ingest"
)

var errUnauthorized = errors.New("unauthorized")

// withAuth rejects requests whose shared secret does not match before the
// body is read. With no secret configured every request passes.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verifier.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		if !s.verifier.Verify(r.Header.Get(auth.HeaderName)) {
			err := ingest.Wrap(ingest.KindAuth, "", errUnauthorized)
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}
