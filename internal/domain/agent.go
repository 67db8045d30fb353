package domain

import "time"

// Agent models a support agent or administrator. Agents join either by
// seed data or by accepting an invitation from an admin; until the
// invitation is accepted the account carries a pending token and no
// password.
type Agent struct {
	ID                   string
	Name                 string
	Email                string
	PasswordHash         string
	IsAdmin              bool
	InvitedByID          *string
	InvitationToken      *string
	InvitationAcceptedAt *time.Time
	ResetPasswordToken   *string
	ResetPasswordSentAt  *time.Time
	LastAssignedAt       *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Active reports whether the agent can be assigned work: either the
// account never went through an invitation or the invitation was accepted.
func (a *Agent) Active() bool {
	return a.InvitationToken == nil || a.InvitationAcceptedAt != nil
}
