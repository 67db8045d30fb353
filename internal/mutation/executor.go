// Package mutation runs every state-changing operation through one
// pipeline: authorization gate, a single transaction, error translation
// into the uniform response shape, and post-commit task hooks.
package mutation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// Requirement declares who may run a mutation. It is checked before any
// transaction is opened.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireAuthenticated
	RequireCustomer
	RequireAgent
	RequireAdmin
)

// Exec is the per-invocation context handed to a handler body. It
// carries the transaction-scoped store, the acting user, the soft-error
// accumulator and the post-commit hook list.
type Exec struct {
	Store *repository.Store
	Actor *domain.Actor

	errs  []apperrors.FieldError
	hooks []func(context.Context)
}

// AddError records a soft validation failure against a field. The
// handler keeps running so several inputs can be reported at once; the
// transaction rolls back if any were recorded.
func (ex *Exec) AddError(field, message string) {
	if field == "" {
		field = "base"
	}
	ex.errs = append(ex.errs, apperrors.FieldError{
		Field:   field,
		Message: message,
		Code:    apperrors.KindValidation,
	})
}

// Failed reports whether any soft error has been recorded.
func (ex *Exec) Failed() bool {
	return len(ex.errs) > 0
}

// AfterCommit registers a hook to run only once the transaction has
// committed. Background work is enqueued exclusively through here, so a
// rollback never leaves a queued task for state that does not exist.
func (ex *Exec) AfterCommit(fn func(context.Context)) {
	ex.hooks = append(ex.hooks, fn)
}

// Handler is a mutation body. A returned error aborts and rolls back;
// soft errors recorded on the Exec roll back too but produce a
// structured error list instead of a single failure.
type Handler func(ctx context.Context, ex *Exec) (any, error)

// Response is the uniform mutation result: a payload on success or a
// non-empty error list, never both.
type Response struct {
	Payload any                    `json:"payload"`
	Errors  []apperrors.FieldError `json:"errors"`
}

// OK reports whether the mutation succeeded.
func (r *Response) OK() bool {
	return len(r.Errors) == 0
}

// Status returns the transport status code implied by the result.
func (r *Response) Status() int {
	if r.OK() {
		return 200
	}
	return apperrors.HTTPStatus(r.Errors[0].Code)
}

// Recorder receives one observation per executed mutation.
type Recorder interface {
	ObserveMutation(name, outcome string, elapsed time.Duration)
}

// Executor drives mutations through the shared pipeline.
type Executor struct {
	store       *repository.Store
	logger      *zap.Logger
	recorder    Recorder
	development bool
}

// NewExecutor constructs an executor. recorder may be nil.
func NewExecutor(store *repository.Store, logger *zap.Logger, recorder Recorder, development bool) *Executor {
	return &Executor{store: store, logger: logger, recorder: recorder, development: development}
}

// errSoftFailure aborts the transaction when a handler finished with
// accumulated field errors.
var errSoftFailure = errors.New("mutation recorded field errors")

// Execute runs one mutation end to end. The requirement is enforced
// before the transaction opens; the handler runs inside one transaction;
// hooks run only after commit.
func (e *Executor) Execute(ctx context.Context, name string, req Requirement, actor *domain.Actor, fn Handler) *Response {
	start := time.Now()

	if err := checkRequirement(req, actor); err != nil {
		return e.finish(name, start, e.failure(name, err))
	}

	var (
		payload any
		soft    []apperrors.FieldError
		hooks   []func(context.Context)
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, s *repository.Store) error {
		ex := &Exec{Store: s, Actor: actor}
		result, err := fn(ctx, ex)
		if err != nil {
			return err
		}
		if ex.Failed() {
			soft = ex.errs
			return errSoftFailure
		}
		payload = result
		hooks = ex.hooks
		return nil
	})
	if err != nil {
		if errors.Is(err, errSoftFailure) {
			return e.finish(name, start, &Response{Errors: soft})
		}
		return e.finish(name, start, e.failure(name, err))
	}

	for _, hook := range hooks {
		hook(ctx)
	}
	return e.finish(name, start, &Response{Payload: payload})
}

// failure translates a hard error into a single-entry response. Unknown
// faults are logged with the mutation name and collapse to INTERNAL; the
// underlying detail is exposed only in development.
func (e *Executor) failure(name string, err error) *Response {
	domainErr := apperrors.ToDomainError(err)
	fieldErr := apperrors.FieldErrorFrom(domainErr)
	if domainErr.Kind == apperrors.KindInternal {
		e.logger.Error("mutation failed",
			zap.String("mutation", name),
			zap.Error(err))
		if e.development && domainErr.Err != nil {
			fieldErr.Message = domainErr.Err.Error()
		}
	}
	return &Response{Errors: []apperrors.FieldError{fieldErr}}
}

func (e *Executor) finish(name string, start time.Time, resp *Response) *Response {
	if e.recorder != nil {
		outcome := "ok"
		if !resp.OK() {
			outcome = string(resp.Errors[0].Code)
		}
		e.recorder.ObserveMutation(name, outcome, time.Since(start))
	}
	return resp
}

func checkRequirement(req Requirement, actor *domain.Actor) error {
	if req == RequireNone {
		return nil
	}
	if actor == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	switch req {
	case RequireCustomer:
		if !actor.IsCustomer() {
			return apperrors.NewUnauthorized("customer account required")
		}
	case RequireAgent:
		if !actor.IsAgent() {
			return apperrors.NewUnauthorized("agent account required")
		}
	case RequireAdmin:
		if !actor.IsAdmin() {
			return apperrors.NewUnauthorized("admin privileges required")
		}
	}
	return nil
}
