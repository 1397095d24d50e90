package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"passdist/entity"
)

var (
	ErrUnknownToken = errors.New("unknown token")
	ErrNotAdmin     = errors.New("admin role required")
)

type Database interface {
	GetUser(token string) (*entity.User, error)
}

// Auth resolves API tokens: static admin tokens from config first,
// then the users collection if a database is connected.
type Auth struct {
	db     Database
	tokens []string
}

func New(tokens []string, db Database) *Auth {
	static := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			static = append(static, t)
		}
	}
	return &Auth{db: db, tokens: static}
}

// Enabled reports whether any token source is configured.
func (a *Auth) Enabled() bool {
	return len(a.tokens) > 0 || a.db != nil
}

func (a *Auth) UserByToken(token string) (*entity.User, error) {
	if token == "" {
		return nil, ErrUnknownToken
	}
	for i, t := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			return &entity.User{
				Username: fmt.Sprintf("admin-%d", i+1),
				Token:    token,
				Role:     entity.RoleAdmin,
			}, nil
		}
	}
	if a.db == nil {
		return nil, ErrUnknownToken
	}
	user, err := a.db.GetUser(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownToken, err)
	}
	return user, nil
}

// AdminByToken is UserByToken restricted to admin users.
func (a *Auth) AdminByToken(token string) (*entity.User, error) {
	user, err := a.UserByToken(token)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, ErrNotAdmin
	}
	return user, nil
}
