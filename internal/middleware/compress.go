package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// NoCompressionHeader lets a client opt out of response compression.
const NoCompressionHeader = "X-No-Compression"

// Compress gzips or deflates responses of the given content types for clients
// that accept it, unless the request carries NoCompressionHeader.
func Compress(level int, types ...string) func(http.Handler) http.Handler {
	compress := chimw.Compress(level, types...)
	return func(next http.Handler) http.Handler {
		compressed := compress(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(NoCompressionHeader) != "" {
				next.ServeHTTP(w, r)
				return
			}
			compressed.ServeHTTP(w, r)
		})
	}
}
