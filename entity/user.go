package entity

type Role string

const (
	RoleNone  Role = ""
	RoleAdmin Role = "admin"
)

// User is an API token holder; only admins may reset the document.
// Users come either from the static admin token list or from the users collection.
type User struct {
	Username string `json:"username" bson:"username"`
	Name     string `json:"name" bson:"name"`
	Token    string `json:"token" bson:"token"`
	Role     Role   `json:"role" bson:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
