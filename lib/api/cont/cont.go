package cont

import (
	"context"
	"passdist/entity"
)

type ctxKey string

const UserDataKey ctxKey = "userData"

func PutUser(c context.Context, user *entity.User) context.Context {
	if user == nil {
		return c
	}
	return context.WithValue(c, UserDataKey, *user)
}

// GetUser returns nil when the request was not authenticated
func GetUser(c context.Context) *entity.User {
	user, ok := c.Value(UserDataKey).(entity.User)
	if !ok {
		return nil
	}
	return &user
}
