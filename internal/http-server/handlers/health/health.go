package health

import (
	"net/http"

	"github.com/go-chi/render"

	"passdist/lib/api/response"
)

const message = "code distribution service is running"

// Root answers liveness probes; it never touches the store.
func Root() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(message))
	}
}
