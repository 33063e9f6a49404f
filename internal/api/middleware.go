// Package api implements the local read-only preview server using chi.
package api

import (
	"net/http"
)

// ReadOnly rejects every method other than GET and HEAD.
func ReadOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("read-only server"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
