package mutation

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/config"
	"github.com/spec-kit/tix-api/internal/events"
	"github.com/spec-kit/tix-api/internal/jobs"
	"github.com/spec-kit/tix-api/internal/service"
	"github.com/spec-kit/tix-api/internal/session"
)

const passwordMinLength = 8

var emailPattern = regexp.MustCompile(`\A[^@\s]+@[^@\s]+\z`)

// Dependencies bundles everything the mutation handlers need.
type Dependencies struct {
	Sessions   *session.Manager
	Tokens     *auth.TokenManager
	Queue      jobs.Enqueuer
	History    *audit.Service
	Dispatcher events.Dispatcher
	Mailer     service.Mailer
	Logger     *zap.Logger
	Auth       config.AuthConfig
	Export     config.ExportConfig
}

// Mutations holds every operation handler. Each method returns a
// Handler closure over its input, run by the Executor.
type Mutations struct {
	deps Dependencies
	now  func() time.Time
}

// NewMutations constructs the handler set.
func NewMutations(deps Dependencies) *Mutations {
	return &Mutations{deps: deps, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword records soft errors for an unusable password pair.
func validatePassword(ex *Exec, password, confirmation string) {
	if len(password) < passwordMinLength {
		ex.AddError("password", "is too short (minimum is 8 characters)")
		return
	}
	if password != confirmation {
		ex.AddError("password_confirmation", "doesn't match Password")
	}
}
