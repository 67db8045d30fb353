// Package export renders closed-ticket exports as CSV. Field selection
// works off a fixed table; callers pick a subset or get the default set.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

const descriptionLimit = 200

// Row is one exportable ticket with its joined display data resolved.
type Row struct {
	Ticket        domain.Ticket
	CustomerName  string
	CustomerEmail string
	AgentName     *string
	ClosedAt      *time.Time
}

type field struct {
	name   string
	header string
	value  func(*Row) string
}

var availableFields = []field{
	{"id", "ID", func(r *Row) string { return r.Ticket.ID }},
	{"subject", "Subject", func(r *Row) string { return r.Ticket.Subject }},
	{"description", "Description", func(r *Row) string { return truncate(r.Ticket.Description, descriptionLimit) }},
	{"status", "Status", func(r *Row) string { return string(r.Ticket.Status) }},
	{"customer_name", "Customer Name", func(r *Row) string { return r.CustomerName }},
	{"customer_email", "Customer Email", func(r *Row) string { return r.CustomerEmail }},
	{"assigned_agent", "Assigned Agent", func(r *Row) string {
		if r.AgentName == nil {
			return ""
		}
		return *r.AgentName
	}},
	{"created_at", "Created At", func(r *Row) string { return r.Ticket.CreatedAt.UTC().Format(time.RFC3339) }},
	{"closed_at", "Closed At", func(r *Row) string {
		if r.ClosedAt == nil {
			return ""
		}
		return r.ClosedAt.UTC().Format(time.RFC3339)
	}},
	{"comments_count", "Comments Count", func(r *Row) string { return strconv.Itoa(r.Ticket.CommentsCount) }},
}

// DefaultFields is the subset used when the caller selects nothing.
var DefaultFields = []string{
	"id", "subject", "status", "customer_name", "assigned_agent", "created_at", "closed_at",
}

// AvailableFieldNames lists every selectable field in export order.
func AvailableFieldNames() []string {
	names := make([]string, len(availableFields))
	for i, f := range availableFields {
		names[i] = f.name
	}
	return names
}

// ValidField reports whether name is selectable.
func ValidField(name string) bool {
	for _, f := range availableFields {
		if f.name == name {
			return true
		}
	}
	return false
}

// Generate renders rows to CSV with a header line. Unknown field names
// are skipped; an empty selection falls back to DefaultFields.
func Generate(rows []*Row, fields []string) (string, error) {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	var selected []field
	for _, name := range fields {
		for _, f := range availableFields {
			if f.name == name {
				selected = append(selected, f)
				break
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(selected))
	for i, f := range selected {
		header[i] = f.header
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(selected))
	for _, row := range rows {
		for i, f := range selected {
			record[i] = f.value(row)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// FileName builds the attachment name for an export produced on the
// given day.
func FileName(now time.Time) string {
	return "closed_tickets_" + now.UTC().Format("2006-01-02") + ".csv"
}

// Loader resolves the joined display data for closed tickets matching a
// filter. Close times come from the audit stream, never a stored column.
type Loader struct {
	store   *repository.Store
	history *audit.Service
}

// NewLoader builds a loader.
func NewLoader(store *repository.Store, history *audit.Service) *Loader {
	return &Loader{store: store, history: history}
}

// Collect loads closed tickets matching the filter as export rows.
func (l *Loader) Collect(ctx context.Context, filter repository.ClosedTicketFilter) ([]*Row, error) {
	tickets, err := l.store.Tickets.ListClosed(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	customers := map[string]*domain.Customer{}
	agents := map[string]*domain.Agent{}
	rows := make([]*Row, 0, len(tickets))
	for _, ticket := range tickets {
		row := &Row{Ticket: ticket}

		customer, ok := customers[ticket.CustomerID]
		if !ok {
			customer, err = l.store.Customers.GetByID(ctx, ticket.CustomerID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			customers[ticket.CustomerID] = customer
		}
		row.CustomerName = customer.Name
		row.CustomerEmail = customer.Email

		if ticket.AssignedAgentID != nil {
			agent, ok := agents[*ticket.AssignedAgentID]
			if !ok {
				agent, err = l.store.Agents.GetByID(ctx, *ticket.AssignedAgentID)
				if err != nil {
					return nil, apperrors.MapError(err)
				}
				agents[*ticket.AssignedAgentID] = agent
			}
			row.AgentName = &agent.Name
		}

		closedAt, err := l.history.ClosedAt(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		row.ClosedAt = closedAt
		rows = append(rows, row)
	}
	return rows, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
