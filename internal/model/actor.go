package model

// Role is a coarse permission level.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{RoleViewer: 1, RoleEditor: 2, RoleAdmin: 3}

// ParseRole maps unknown or empty values to viewer.
func ParseRole(s string) Role {
	r := Role(s)
	if _, ok := roleRank[r]; ok {
		return r
	}
	return RoleViewer
}

// Allows reports whether r grants at least the permissions of required.
func (r Role) Allows(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

// Actor identifies who performed a request.
type Actor struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
	IP     string `json:"ip,omitempty"`
}
