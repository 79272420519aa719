package middleware

import "net/http"

// Vary adds Accept to the Vary header of every response, since the body
// encoding (JSON or CBOR) is selected from the Accept request header.
// The CORS middleware contributes Origin on its own.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept")
			next.ServeHTTP(w, r)
		})
	}
}
