package session

// User is the current-user record returned by GET /users/me.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name,omitempty"`
	Roles    []string `json:"roles"`
	TenantID string   `json:"tenant_id,omitempty"`
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Roles = append([]string(nil), u.Roles...)
	return &out
}

// State is a point-in-time copy of the session.
type State struct {
	AccessToken     string
	IsAuthenticated bool
	IsLoading       bool
	User            *User
}

// Roles returns the current user's roles, or nil when no user is loaded.
func (s State) Roles() []string {
	if s.User == nil {
		return nil
	}
	return s.User.Roles
}
