// Package entity contains the core business objects of the project.
package entity

// Role represents the type of role a user can have in the system.
type Role string

const (
	// RoleCustomer is assigned to every self-registered user.
	RoleCustomer Role = "customer"
	// RoleAdmin indicates an administrator.
	RoleAdmin Role = "admin"
	// RoleManager indicates a manager account.
	RoleManager Role = "manager"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleManager:
		return true
	default:
		return false
	}
}
