package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"simple-openai-go/pkg/logging/logging"
)

// Recoverer turns a handler panic into a 500 in the API's error shape.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logging.L(r.Context()).Error("panic recovered",
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
