package domain

import "time"

// Customer is the domain model for end-users who file tickets.
type Customer struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	ResetPasswordToken  *string
	ResetPasswordSentAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
