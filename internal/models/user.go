package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
)

// Capability names an elevated permission that is not tied to a single route.
type Capability string

const (
	CapSeeStatistics Capability = "can_see_statistics"
	CapSeeCodes      Capability = "can_see_codes"
)

// Has reports whether the role carries the capability. Statistics and
// check-in code visibility are reserved for administrative staff.
func (r UserRole) Has(cap Capability) bool {
	switch cap {
	case CapSeeStatistics, CapSeeCodes:
		return r == RoleAdmin || r == RoleSuperAdmin
	default:
		return false
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserProfile is the academic profile attached 1:1 to a user.
type UserProfile struct {
	UserID      string  `db:"user_id" json:"user_id"`
	IsStudent   bool    `db:"is_student" json:"is_student"`
	Age         int     `db:"age" json:"age"`
	DNI         string  `db:"dni" json:"dni"`
	Description *string `db:"description" json:"description,omitempty"`
}
