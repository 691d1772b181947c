package domain

// UserRole enumerates helpdesk account roles as reported by the user lookup
// endpoint.
type UserRole string

const (
	UserRoleAgent   UserRole = "agent"
	UserRoleAdmin   UserRole = "admin"
	UserRoleEndUser UserRole = "end-user"
	UserRoleOther   UserRole = "other"
)

// IsStaff reports whether the role may author automated-transition sources.
func (r UserRole) IsStaff() bool {
	return r == UserRoleAgent || r == UserRoleAdmin
}

// User is a helpdesk account resolved lazily during comment analysis.
type User struct {
	ID   int64
	Name string
	Role UserRole
}
