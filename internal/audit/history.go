// Package audit derives read views from the append-only change log: raw
// redacted entries and human-readable narratives. Reconstruction is pure;
// the same record stream always yields the same events.
package audit

import (
	"sort"
	"time"

	"github.com/spec-kit/tix-api/internal/domain"
)

// HistoryEvent is one human-readable entry in an entity's narrative.
type HistoryEvent struct {
	ID         string
	Text       string
	Actor      *domain.ActorRef
	OccurredAt time.Time
}

// FormattedChange is one redacted field diff in the raw audit view.
type FormattedChange struct {
	Field string  `json:"field"`
	From  *string `json:"from"`
	To    *string `json:"to"`
}

// Entry is one raw audit record prepared for reading: sensitive fields
// removed, changes flattened.
type Entry struct {
	ID         string
	Action     domain.AuditAction
	Changes    []FormattedChange
	Actor      *domain.ActorRef
	OccurredAt time.Time
	Version    int
}

// NameIndex maps agent IDs to display names for narration. Lookups that
// miss render as "Unknown Agent", so a stale index degrades gracefully
// instead of failing.
type NameIndex map[string]string

const unknownAgentName = "Unknown Agent"

func (n NameIndex) agentName(id string) string {
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return unknownAgentName
}

// sensitiveFields are filtered at the read boundary, never at write
// time; raw rows may contain them.
var sensitiveFields = map[string]struct{}{
	"password_hash":        {},
	"reset_password_token": {},
	"invitation_token":     {},
	"token_digest":         {},
}

var statusLabels = map[string]string{
	"new":            "New",
	"agent_assigned": "Agent Assigned",
	"in_progress":    "In Progress",
	"hold":           "On Hold",
	"closed":         "Closed",
}

// Redact strips sensitive fields from a record's change map.
func Redact(changes map[string]domain.FieldChange) []FormattedChange {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		if _, hidden := sensitiveFields[field]; hidden {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]FormattedChange, 0, len(fields))
	for _, field := range fields {
		change := changes[field]
		out = append(out, FormattedChange{Field: field, From: change.From, To: change.To})
	}
	return out
}

// RawEntries converts a newest-first record stream into redacted raw
// entries. When field is non-empty only records touching that field are
// included, each reduced to that single change; sensitive field names
// yield nothing.
func RawEntries(records []domain.AuditRecord, field string) []Entry {
	if field != "" {
		if _, hidden := sensitiveFields[field]; hidden {
			return []Entry{}
		}
	}
	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		if field != "" {
			change, ok := record.Change(field)
			if !ok {
				continue
			}
			entries = append(entries, Entry{
				ID:         record.ID,
				Action:     record.Action,
				Changes:    []FormattedChange{{Field: field, From: change.From, To: change.To}},
				Actor:      record.Actor,
				OccurredAt: record.CreatedAt,
				Version:    record.Version,
			})
			continue
		}
		entries = append(entries, Entry{
			ID:         record.ID,
			Action:     record.Action,
			Changes:    Redact(record.Changes),
			Actor:      record.Actor,
			OccurredAt: record.CreatedAt,
			Version:    record.Version,
		})
	}
	return entries
}

// HumanReadable replays an entity's audit stream into narrative events,
// newest-first. Narration rules are chosen by the entity type tag.
func HumanReadable(entityType domain.AuditEntityType, records []domain.AuditRecord, names NameIndex) []HistoryEvent {
	narrator := narratorFor(entityType)

	var events []HistoryEvent
	for _, record := range records {
		events = append(events, narrator.narrate(record, names)...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})
	return events
}

// ReferencedAgentIDs collects every agent ID a narration could need to
// resolve, so callers can prefetch names before the pure replay.
func ReferencedAgentIDs(records []domain.AuditRecord) []string {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, record := range records {
		if record.Actor != nil && record.Actor.Type == domain.ActorTypeAgent {
			add(record.Actor.ID)
		}
		if change, ok := record.Change("assigned_agent_id"); ok {
			if change.From != nil {
				add(*change.From)
			}
			if change.To != nil {
				add(*change.To)
			}
		}
		if change, ok := record.Change("invited_by_id"); ok && change.To != nil {
			add(*change.To)
		}
	}
	return ids
}
