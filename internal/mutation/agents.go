package mutation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
)

// InviteAgentInput invites a new agent into the team.
type InviteAgentInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// AcceptInviteInput redeems an invitation token.
type AcceptInviteInput struct {
	InvitationToken      string `json:"invitation_token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// InviteAgent creates an invited agent record and mails the invitation
// link. The invited agent cannot sign in or receive assignments until
// they accept.
func (m *Mutations) InviteAgent(input InviteAgentInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		name := strings.TrimSpace(input.Name)
		email := normalizeEmail(input.Email)
		if name == "" {
			ex.AddError("name", "can't be blank")
		}
		if email == "" {
			ex.AddError("email", "can't be blank")
		} else if !emailPattern.MatchString(email) {
			ex.AddError("email", "is invalid")
		}
		if ex.Failed() {
			return nil, nil
		}

		if _, err := ex.Store.Agents.GetByEmail(ctx, email); err == nil {
			ex.AddError("email", "has already been taken")
			return nil, nil
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		token := uuid.NewString()
		inviterID := ex.Actor.ID()
		agent := &domain.Agent{
			Name:            name,
			Email:           email,
			IsAdmin:         input.IsAdmin,
			InvitedByID:     &inviterID,
			InvitationToken: &token,
		}
		if err := ex.Store.Agents.Create(ctx, agent, ex.Actor.Ref()); err != nil {
			if repository.IsUniqueViolation(err, "") {
				ex.AddError("email", "has already been taken")
				return nil, nil
			}
			return nil, err
		}

		ex.AfterCommit(func(ctx context.Context) {
			if err := m.deps.Mailer.InvitationInstructions(ctx, agent.Name, agent.Email, token); err != nil {
				m.deps.Logger.Error("invitation delivery failed",
					zap.String("agent_id", agent.ID), zap.Error(err))
			}
		})
		return NewAgentView(agent), nil
	}
}

// AcceptInvite sets the invited agent's password, activates the account
// and signs them in.
func (m *Mutations) AcceptInvite(input AcceptInviteInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		validatePassword(ex, input.Password, input.PasswordConfirmation)
		if ex.Failed() {
			return nil, nil
		}

		agent, err := ex.Store.Agents.GetByInvitationToken(ctx, input.InvitationToken)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				ex.AddError("invitation_token", "is invalid")
				return nil, nil
			}
			return nil, err
		}
		if agent.InvitationAcceptedAt != nil {
			ex.AddError("invitation_token", "has already been used")
			return nil, nil
		}

		hash, err := auth.HashPassword(input.Password, m.deps.Auth.BcryptCost)
		if err != nil {
			return nil, err
		}
		now := m.now().UTC()
		agent.PasswordHash = hash
		agent.InvitationToken = nil
		agent.InvitationAcceptedAt = &now
		if err := ex.Store.Agents.Update(ctx, agent, nil); err != nil {
			return nil, err
		}
		return m.openSession(ctx, ex, domain.AgentActor(agent), NewAgentView(agent))
	}
}
