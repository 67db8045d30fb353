package mutation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// SignUpInput registers a new customer account.
type SignUpInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// SignInInput authenticates a customer or agent.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

// SessionTokenInput carries the role selector plus the raw refresh
// token the transport read from the role's cookie.
type SessionTokenInput struct {
	UserType     string `json:"user_type"`
	RefreshToken string `json:"-"`
}

// RequestPasswordResetInput asks for a reset email.
type RequestPasswordResetInput struct {
	Email    string `json:"email"`
	UserType string `json:"user_type"`
}

// ResetPasswordInput consumes a reset token.
type ResetPasswordInput struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	UserType             string `json:"user_type"`
}

// RoleFor maps the wire user_type to an actor role, defaulting to
// customer.
func RoleFor(userType string) domain.ActorType {
	if strings.EqualFold(userType, "agent") {
		return domain.ActorTypeAgent
	}
	return domain.ActorTypeCustomer
}

// SignUp registers a customer and opens a session for them.
func (m *Mutations) SignUp(input SignUpInput) Handler {
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
		validatePassword(ex, input.Password, input.PasswordConfirmation)
		if ex.Failed() {
			return nil, nil
		}

		if _, err := ex.Store.Customers.GetByEmail(ctx, email); err == nil {
			ex.AddError("email", "has already been taken")
			return nil, nil
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		hash, err := auth.HashPassword(input.Password, m.deps.Auth.BcryptCost)
		if err != nil {
			return nil, err
		}
		customer := &domain.Customer{Name: name, Email: email, PasswordHash: hash}
		if err := ex.Store.Customers.Create(ctx, customer, nil); err != nil {
			if repository.IsUniqueViolation(err, "") {
				ex.AddError("email", "has already been taken")
				return nil, nil
			}
			return nil, err
		}
		return m.openSession(ctx, ex, domain.CustomerActor(customer), NewCustomerView(customer))
	}
}

// SignIn authenticates against the selected role's accounts. Every
// failure mode surfaces the same message so the response never confirms
// whether the email exists.
func (m *Mutations) SignIn(input SignInInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		email := normalizeEmail(input.Email)
		role := RoleFor(input.UserType)

		var actor *domain.Actor
		var view any
		switch role {
		case domain.ActorTypeCustomer:
			customer, err := ex.Store.Customers.GetByEmail(ctx, email)
			if err != nil {
				return m.rejectCredentials(ex, err)
			}
			if auth.ComparePassword(customer.PasswordHash, input.Password) != nil {
				return m.rejectCredentials(ex, nil)
			}
			actor, view = domain.CustomerActor(customer), NewCustomerView(customer)
		case domain.ActorTypeAgent:
			agent, err := ex.Store.Agents.GetByEmail(ctx, email)
			if err != nil {
				return m.rejectCredentials(ex, err)
			}
			if !agent.Active() || auth.ComparePassword(agent.PasswordHash, input.Password) != nil {
				return m.rejectCredentials(ex, nil)
			}
			actor, view = domain.AgentActor(agent), NewAgentView(agent)
		}
		return m.openSession(ctx, ex, actor, view)
	}
}

// SignOut revokes the presented refresh token. It succeeds even when no
// valid session was presented, so a stale cookie can always be cleared.
func (m *Mutations) SignOut(input SessionTokenInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		if input.RefreshToken != "" {
			record, err := m.deps.Sessions.Validate(ctx, ex.Store.RefreshTokens, input.RefreshToken)
			if err == nil {
				if err := m.deps.Sessions.Revoke(ctx, ex.Store.RefreshTokens, record); err != nil {
					return nil, err
				}
			}
		}
		return &SuccessResult{Success: true}, nil
	}
}

// RefreshSession rotates the presented refresh token and issues a fresh
// access token. The presented token is single-use: after a successful
// refresh only the replacement validates.
func (m *Mutations) RefreshSession(input SessionTokenInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		role := RoleFor(input.UserType)
		record, err := m.deps.Sessions.Validate(ctx, ex.Store.RefreshTokens, input.RefreshToken)
		if err != nil {
			return nil, err
		}
		if record.ActorType != role {
			return nil, apperrors.NewDomainError(apperrors.KindInvalidRefreshToken, "base", "Token does not match user type")
		}

		actor, view, err := m.loadSessionActor(ctx, ex, record)
		if err != nil {
			return nil, err
		}
		_, refreshRaw, err := m.deps.Sessions.Rotate(ctx, ex.Store.RefreshTokens, record)
		if err != nil {
			return nil, err
		}
		access, _, err := m.deps.Tokens.Generate(actor.Ref())
		if err != nil {
			return nil, err
		}
		return &SessionResult{Role: actor.Type, User: view, AccessToken: access, RefreshToken: refreshRaw}, nil
	}
}

// RequestPasswordReset stores a reset token and mails instructions. The
// payload is identical whether or not the account exists.
func (m *Mutations) RequestPasswordReset(input RequestPasswordResetInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		email := normalizeEmail(input.Email)
		role := RoleFor(input.UserType)
		token := uuid.NewString()
		now := m.now().UTC()

		var name, to string
		switch role {
		case domain.ActorTypeCustomer:
			customer, err := ex.Store.Customers.GetByEmail(ctx, email)
			if err != nil {
				return m.resetAcknowledged(err)
			}
			customer.ResetPasswordToken = &token
			customer.ResetPasswordSentAt = &now
			if err := ex.Store.Customers.Update(ctx, customer, nil); err != nil {
				return nil, err
			}
			name, to = customer.Name, customer.Email
		case domain.ActorTypeAgent:
			agent, err := ex.Store.Agents.GetByEmail(ctx, email)
			if err != nil {
				return m.resetAcknowledged(err)
			}
			agent.ResetPasswordToken = &token
			agent.ResetPasswordSentAt = &now
			if err := ex.Store.Agents.Update(ctx, agent, nil); err != nil {
				return nil, err
			}
			name, to = agent.Name, agent.Email
		}

		ex.AfterCommit(func(ctx context.Context) {
			if err := m.deps.Mailer.ResetPasswordInstructions(ctx, role, name, to, token); err != nil {
				m.deps.Logger.Error("reset instructions delivery failed", zap.Error(err))
			}
		})
		return &SuccessResult{Success: true}, nil
	}
}

// ResetPassword sets a new password for the account holding the token.
func (m *Mutations) ResetPassword(input ResetPasswordInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		validatePassword(ex, input.Password, input.PasswordConfirmation)
		if ex.Failed() {
			return nil, nil
		}
		role := RoleFor(input.UserType)
		hash, err := auth.HashPassword(input.Password, m.deps.Auth.BcryptCost)
		if err != nil {
			return nil, err
		}

		switch role {
		case domain.ActorTypeCustomer:
			customer, err := ex.Store.Customers.GetByResetToken(ctx, input.Token)
			if err != nil {
				return m.rejectResetToken(ex, err)
			}
			if m.resetExpired(customer.ResetPasswordSentAt) {
				ex.AddError("token", "has expired, please request a new one")
				return nil, nil
			}
			customer.PasswordHash = hash
			customer.ResetPasswordToken = nil
			customer.ResetPasswordSentAt = nil
			if err := ex.Store.Customers.Update(ctx, customer, nil); err != nil {
				return nil, err
			}
		case domain.ActorTypeAgent:
			agent, err := ex.Store.Agents.GetByResetToken(ctx, input.Token)
			if err != nil {
				return m.rejectResetToken(ex, err)
			}
			if m.resetExpired(agent.ResetPasswordSentAt) {
				ex.AddError("token", "has expired, please request a new one")
				return nil, nil
			}
			agent.PasswordHash = hash
			agent.ResetPasswordToken = nil
			agent.ResetPasswordSentAt = nil
			if err := ex.Store.Agents.Update(ctx, agent, nil); err != nil {
				return nil, err
			}
		}
		return &SuccessResult{Success: true}, nil
	}
}

func (m *Mutations) openSession(ctx context.Context, ex *Exec, actor *domain.Actor, view any) (any, error) {
	access, _, err := m.deps.Tokens.Generate(actor.Ref())
	if err != nil {
		return nil, err
	}
	_, refreshRaw, err := m.deps.Sessions.Issue(ctx, ex.Store.RefreshTokens, actor.Ref())
	if err != nil {
		return nil, err
	}
	return &SessionResult{Role: actor.Type, User: view, AccessToken: access, RefreshToken: refreshRaw}, nil
}

func (m *Mutations) loadSessionActor(ctx context.Context, ex *Exec, record *domain.RefreshToken) (*domain.Actor, any, error) {
	switch record.ActorType {
	case domain.ActorTypeCustomer:
		customer, err := ex.Store.Customers.GetByID(ctx, record.ActorID)
		if err != nil {
			return nil, nil, staleSessionActor(err)
		}
		return domain.CustomerActor(customer), NewCustomerView(customer), nil
	case domain.ActorTypeAgent:
		agent, err := ex.Store.Agents.GetByID(ctx, record.ActorID)
		if err != nil {
			return nil, nil, staleSessionActor(err)
		}
		return domain.AgentActor(agent), NewAgentView(agent), nil
	}
	return nil, nil, apperrors.NewDomainError(apperrors.KindInvalidRefreshToken, "base", "Invalid or expired refresh token")
}

func (m *Mutations) rejectCredentials(ex *Exec, err error) (any, error) {
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	ex.AddError("base", "Invalid email or password")
	return nil, nil
}

func (m *Mutations) rejectResetToken(ex *Exec, err error) (any, error) {
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	ex.AddError("token", "is invalid")
	return nil, nil
}

func (m *Mutations) resetAcknowledged(err error) (any, error) {
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return &SuccessResult{Success: true}, nil
}

func (m *Mutations) resetExpired(sentAt *time.Time) bool {
	if sentAt == nil {
		return true
	}
	ttl := time.Duration(m.deps.Auth.PasswordResetTTLMinutes) * time.Minute
	return m.now().After(sentAt.Add(ttl))
}

func staleSessionActor(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewDomainError(apperrors.KindInvalidRefreshToken, "base", "Invalid or expired refresh token")
	}
	return err
}
