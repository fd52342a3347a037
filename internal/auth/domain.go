package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered invoicing business.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CompanyName  string
	RTN          string
	Phone        string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the editable part of an account.
type Profile struct {
	CompanyName string
	RTN         string
	Phone       string
}

// Registration carries the sign-up form.
type Registration struct {
	Email    string
	Password string
	Profile
}
