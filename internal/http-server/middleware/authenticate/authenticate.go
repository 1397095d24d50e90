package authenticate

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"passdist/entity"
	"passdist/lib/api/cont"
	"passdist/lib/api/response"
	"passdist/lib/sl"
)

type Authenticate interface {
	AuthenticateByToken(token string) (*entity.User, error)
}

// New requires a bearer token resolving to an admin user.
func New(log *slog.Logger, auth Authenticate) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			logger := log.With(
				mod,
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			header := r.Header.Get("Authorization")
			if header == "" {
				logger.Warn("authorization header not found")
				authFailed(w, r, "Authorization header not found")
				return
			}
			token := ""
			if scheme, value, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
				token = strings.TrimSpace(value)
			}
			if token == "" {
				logger.Warn("bearer token not found")
				authFailed(w, r, "Token not found")
				return
			}
			logger = logger.With(sl.Secret("token", token))

			if auth == nil {
				authFailed(w, r, "Unauthorized: authentication not enabled")
				return
			}

			user, err := auth.AuthenticateByToken(token)
			if err != nil {
				logger.Warn("authentication failed", sl.Err(err))
				authFailed(w, r, "Unauthorized: invalid token")
				return
			}
			logger.With(slog.String("user", user.Username)).Debug("authenticated")

			ctx := cont.PutUser(r.Context(), user)
			w.Header().Set("X-User", user.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(message))
}
