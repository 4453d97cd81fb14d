// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the principal the service authenticates. It is created on registration
// and never mutated by the token subsystem.
type User struct {
	ID           uuid.UUID // Generated by the store on creation.
	FirstName    string
	LastName     string
	Email        string    // Unique, stored trimmed.
	PasswordHash string    // bcrypt digest; never leaves the service.
	Role         Role      // Embedded in every token issued for this user.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
