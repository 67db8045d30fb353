package audit

import (
	"context"
	"time"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// Service exposes the audit read path: raw redacted history and
// human-readable narratives. It resolves referenced agent names up
// front, then hands the record stream to the pure replay functions.
type Service struct {
	audits repository.AuditRepository
	agents repository.AgentRepository
}

// NewService builds the service.
func NewService(audits repository.AuditRepository, agents repository.AgentRepository) *Service {
	return &Service{audits: audits, agents: agents}
}

// History returns the human-readable narrative for an entity,
// newest-first.
func (s *Service) History(ctx context.Context, entityType domain.AuditEntityType, entityID string) ([]HistoryEvent, error) {
	records, err := s.audits.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	names, err := s.resolveNames(ctx, records)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return HumanReadable(entityType, records, names), nil
}

// RawHistory returns the redacted raw audit entries for an entity,
// newest-first. A non-empty field restricts the view to that field's
// changes.
func (s *Service) RawHistory(ctx context.Context, entityType domain.AuditEntityType, entityID, field string) ([]Entry, error) {
	records, err := s.audits.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return RawEntries(records, field), nil
}

// ClosedAt derives the close time of a ticket from its audit stream.
func (s *Service) ClosedAt(ctx context.Context, ticketID string) (*time.Time, error) {
	ts, err := s.audits.ClosedAt(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ts, nil
}

func (s *Service) resolveNames(ctx context.Context, records []domain.AuditRecord) (NameIndex, error) {
	names := NameIndex{}
	for _, id := range ReferencedAgentIDs(records) {
		agent, err := s.agents.GetByID(ctx, id)
		if err != nil {
			// deleted agents narrate as unknown
			continue
		}
		names[id] = agent.Name
	}
	return names, nil
}
