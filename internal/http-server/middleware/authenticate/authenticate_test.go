package authenticate

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"passdist/entity"
	"passdist/lib/api/cont"
)

type tokens map[string]*entity.User

func (t tokens) AuthenticateByToken(token string) (*entity.User, error) {
	if user, ok := t[token]; ok {
		return user, nil
	}
	return nil, errors.New("unknown token")
}

func TestAuthenticate(t *testing.T) {
	auth := tokens{"good": {Username: "ops", Role: entity.RoleAdmin}}
	var seen *entity.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = cont.GetUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := New(slog.New(slog.DiscardHandler), auth)(next)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/api/reset-passwords", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				if assert.NotNil(t, seen) {
					assert.Equal(t, "ops", seen.Username)
				}
				assert.Equal(t, "ops", rec.Header().Get("X-User"))
			} else {
				assert.Nil(t, seen)
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestAuthenticateWithoutService(t *testing.T) {
	h := New(slog.New(slog.DiscardHandler), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
