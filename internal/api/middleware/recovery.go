package middleware

import (
	"log/slog"
	"net/http"

	"github.com/jwren/castellan/internal/api/apierr"
	"github.com/jwren/castellan/internal/middleware"
)

// Recovery converts panics into JSON 500 responses
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
