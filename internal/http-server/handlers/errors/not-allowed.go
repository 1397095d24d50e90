package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"passdist/lib/api/response"
	"passdist/lib/sl"
)

func NotAllowed(log *slog.Logger) http.HandlerFunc {
	mod := sl.Module("http.handlers.errors")
	return func(w http.ResponseWriter, r *http.Request) {
		log.With(mod).Debug("method not allowed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, response.Error("Method not allowed"))
	}
}
