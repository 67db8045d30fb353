package mutation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/export"
	"github.com/spec-kit/tix-api/internal/jobs"
	"github.com/spec-kit/tix-api/internal/repository"
)

// ExportClosedTicketsInput selects and filters the closed-ticket
// export. The original search term is capped to keep ILIKE patterns
// bounded.
type ExportClosedTicketsInput struct {
	Fields        []string   `json:"fields"`
	AssignedToMe  bool       `json:"assigned_to_me"`
	CustomerID    *string    `json:"customer_id"`
	Search        *string    `json:"search"`
	CreatedAfter  *time.Time `json:"created_after"`
	CreatedBefore *time.Time `json:"created_before"`
}

const searchTermLimit = 100

// ExportClosedTickets builds a CSV of closed tickets. Small result
// sets come back inline; anything over the threshold is queued and
// mailed to the requesting agent instead.
func (m *Mutations) ExportClosedTickets(input ExportClosedTicketsInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		for _, name := range input.Fields {
			if !export.ValidField(name) {
				ex.AddError("fields", "contains unknown field "+name)
			}
		}
		if ex.Failed() {
			return nil, nil
		}

		filter := repository.ClosedTicketFilter{
			CustomerID:    input.CustomerID,
			CreatedAfter:  input.CreatedAfter,
			CreatedBefore: input.CreatedBefore,
		}
		if input.AssignedToMe {
			agentID := ex.Actor.ID()
			filter.AssignedAgentID = &agentID
		}
		if input.Search != nil {
			term := *input.Search
			if len(term) > searchTermLimit {
				term = term[:searchTermLimit]
			}
			filter.Search = &term
		}

		count, err := ex.Store.Tickets.CountClosed(ctx, filter)
		if err != nil {
			return nil, err
		}
		if count > m.deps.Export.SyncThreshold {
			agentID := ex.Actor.ID()
			fields := input.Fields
			ex.AfterCommit(func(ctx context.Context) {
				if err := m.deps.Queue.Enqueue(ctx, jobs.NewExportTask(agentID, fields, filter)); err != nil {
					m.deps.Logger.Error("export enqueue failed",
						zap.String("agent_id", agentID), zap.Error(err))
				}
			})
			return &ExportResult{Async: true, Count: count}, nil
		}

		loader := export.NewLoader(ex.Store, m.deps.History)
		rows, err := loader.Collect(ctx, filter)
		if err != nil {
			return nil, err
		}
		csvData, err := export.Generate(rows, input.Fields)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Async: false, Count: count, CSV: csvData}, nil
	}
}
