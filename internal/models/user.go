package models

import "time"

// UserRole distinguishes ordinary employees from administrators.
type UserRole string

const (
	RoleGeneral UserRole = "general"
	RoleAdmin   UserRole = "admin"
)

// FullAccessDepartment is the department code granting organisation-wide
// administrative scope.
const FullAccessDepartment = 1

// User represents an application user stored in the users table.
type User struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Name           string    `db:"name" json:"name"`
	Role           UserRole  `db:"role" json:"role"`
	DepartmentCode *int      `db:"department_code" json:"department_code,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasFullAccess reports whether the user administers every employee
// (admin role with department code 1).
func (u *User) HasFullAccess() bool {
	return u.Role == RoleAdmin && u.DepartmentCode != nil && *u.DepartmentCode == FullAccessDepartment
}

// HasDepartmentAccess reports whether the user administers only their own
// department (admin role with a non-null department code other than 1).
func (u *User) HasDepartmentAccess() bool {
	return u.Role == RoleAdmin && u.DepartmentCode != nil && *u.DepartmentCode != FullAccessDepartment
}

// SameDepartment reports whether both users carry the same non-null
// department code.
func (u *User) SameDepartment(other *User) bool {
	if u.DepartmentCode == nil || other == nil || other.DepartmentCode == nil {
		return false
	}
	return *u.DepartmentCode == *other.DepartmentCode
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role           *UserRole
	DepartmentCode *int
	Active         *bool
	Search         string
	Page           int
	PageSize       int
}
