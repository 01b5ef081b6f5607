package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"custos/pkg/requestcontext"
)

// Header carries the correlation ID between services.
const Header = "X-Request-Id"

// Middleware assigns a correlation ID to each request, honoring one supplied
// by the caller, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
