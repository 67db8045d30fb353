package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/export"
	"github.com/spec-kit/tix-api/internal/repository"
	"github.com/spec-kit/tix-api/internal/service"
)

// ExportRunner builds closed-ticket CSV exports and mails them to the
// requesting agent.
type ExportRunner struct {
	store  *repository.Store
	loader *export.Loader
	mailer service.Mailer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportRunner builds a runner.
func NewExportRunner(store *repository.Store, history *audit.Service, mailer service.Mailer, logger *zap.Logger) *ExportRunner {
	return &ExportRunner{
		store:  store,
		loader: export.NewLoader(store, history),
		mailer: mailer,
		logger: logger,
		now:    time.Now,
	}
}

// Run produces the CSV for the task's filter and delivers it.
func (r *ExportRunner) Run(ctx context.Context, task *ExportTask) error {
	agent, err := r.store.Agents.GetByID(ctx, task.AgentID)
	if err != nil {
		return err
	}
	rows, err := r.loader.Collect(ctx, task.Filter)
	if err != nil {
		return err
	}
	csvData, err := export.Generate(rows, task.Fields)
	if err != nil {
		return err
	}
	fileName := export.FileName(r.now())
	if err := r.mailer.ClosedTicketsExport(ctx, agent.Name, agent.Email, fileName, csvData); err != nil {
		return err
	}
	r.logger.Info("export delivered",
		zap.String("agent_id", agent.ID),
		zap.Int("tickets", len(rows)))
	return nil
}
