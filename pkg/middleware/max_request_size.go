package middleware

import (
	"net/http"

	apperrors "innkeep/pkg/errors"
	httputil "innkeep/pkg/http"
)

// MaxRequestSize rejects declared oversize bodies up front and caps the
// reader for bodies of unknown length.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				_ = httputil.WriteError(w, apperrors.PayloadTooLarge(maxBytes))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
