package repository

import (
	"context"

	"github.com/spec-kit/tix-api/internal/domain"
)

// CustomerRepository encapsulates customer persistence with audit
// capture on every write.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer, actor *domain.ActorRef) error
	Update(ctx context.Context, customer *domain.Customer, actor *domain.ActorRef) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByResetToken(ctx context.Context, token string) (*domain.Customer, error)
}

type customerRepository struct {
	db     DB
	audits AuditRepository
}

// NewCustomerRepository builds the repository.
func NewCustomerRepository(db DB, audits AuditRepository) CustomerRepository {
	return &customerRepository{db: db, audits: audits}
}

const customerColumns = `id, name, email, password_hash, reset_password_token, reset_password_sent_at, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer, actor *domain.ActorRef) error {
	const query = `
        INSERT INTO customers (name, email, password_hash)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, query,
		customer.Name,
		customer.Email,
		customer.PasswordHash,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
		return err
	}

	changes := changeSet{}
	changes.set("name", nil, strValue(customer.Name))
	changes.set("email", nil, strValue(customer.Email))
	changes.set("password_hash", nil, strValue(customer.PasswordHash))
	return r.audits.Append(ctx, &domain.AuditRecord{
		EntityType: domain.EntityCustomer,
		EntityID:   customer.ID,
		Action:     domain.AuditActionCreate,
		Changes:    changes,
		Actor:      actor,
	})
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer, actor *domain.ActorRef) error {
	current, err := r.GetByID(ctx, customer.ID)
	if err != nil {
		return err
	}

	const query = `
        UPDATE customers SET name=$1, email=$2, password_hash=$3,
            reset_password_token=$4, reset_password_sent_at=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	if err := r.db.QueryRow(ctx, query,
		customer.Name,
		customer.Email,
		customer.PasswordHash,
		customer.ResetPasswordToken,
		customer.ResetPasswordSentAt,
		customer.ID,
	).Scan(&customer.UpdatedAt); err != nil {
		return err
	}

	changes := changeSet{}
	changes.setStr("name", current.Name, customer.Name)
	changes.setStr("email", current.Email, customer.Email)
	changes.setStr("password_hash", current.PasswordHash, customer.PasswordHash)
	changes.setPtr("reset_password_token", current.ResetPasswordToken, customer.ResetPasswordToken)
	changes.setTimePtr("reset_password_sent_at", current.ResetPasswordSentAt, customer.ResetPasswordSentAt)
	if len(changes) == 0 {
		return nil
	}
	return r.audits.Append(ctx, &domain.AuditRecord{
		EntityType: domain.EntityCustomer,
		EntityID:   customer.ID,
		Action:     domain.AuditActionUpdate,
		Changes:    changes,
		Actor:      actor,
	})
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *customerRepository) GetByResetToken(ctx context.Context, token string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE reset_password_token=$1`, token)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.PasswordHash,
		&customer.ResetPasswordToken,
		&customer.ResetPasswordSentAt,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}
