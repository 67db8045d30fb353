package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tix-api/internal/domain"
)

func strPtr(s string) *string {
	return &s
}

func at(minute int) time.Time {
	return time.Date(2026, 2, 1, 10, minute, 0, 0, time.UTC)
}

func TestRedactStripsSensitiveFields(t *testing.T) {
	changes := map[string]domain.FieldChange{
		"subject":              {To: strPtr("Printer on fire")},
		"password_hash":        {To: strPtr("bcrypt-goo")},
		"reset_password_token": {To: strPtr("tok")},
		"invitation_token":     {To: strPtr("tok")},
		"token_digest":         {To: strPtr("digest")},
		"status":               {From: strPtr("new"), To: strPtr("closed")},
	}

	out := Redact(changes)
	require.Len(t, out, 2)
	// Sorted by field name for stable output.
	assert.Equal(t, "status", out[0].Field)
	assert.Equal(t, "subject", out[1].Field)
}

func TestRawEntriesFieldFilter(t *testing.T) {
	records := []domain.AuditRecord{
		{
			ID:      "r2",
			Action:  domain.AuditActionUpdate,
			Changes: map[string]domain.FieldChange{"status": {From: strPtr("new"), To: strPtr("agent_assigned")}},
			Version: 2,
		},
		{
			ID:      "r1",
			Action:  domain.AuditActionCreate,
			Changes: map[string]domain.FieldChange{"subject": {To: strPtr("Help")}},
			Version: 1,
		},
	}

	all := RawEntries(records, "")
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].ID)
	assert.Equal(t, 2, all[0].Version)

	filtered := RawEntries(records, "status")
	require.Len(t, filtered, 1)
	assert.Equal(t, "r2", filtered[0].ID)
	require.Len(t, filtered[0].Changes, 1)
	assert.Equal(t, "status", filtered[0].Changes[0].Field)

	// Asking for a sensitive field never leaks, even when present.
	withSecret := append(records, domain.AuditRecord{
		ID:      "r3",
		Action:  domain.AuditActionUpdate,
		Changes: map[string]domain.FieldChange{"password_hash": {To: strPtr("x")}},
		Version: 3,
	})
	assert.Empty(t, RawEntries(withSecret, "password_hash"))
}

func TestHumanReadableTicketCreate(t *testing.T) {
	actor := &domain.ActorRef{Type: domain.ActorTypeCustomer, ID: "cust-1"}
	records := []domain.AuditRecord{{
		ID:     "r1",
		Action: domain.AuditActionCreate,
		Changes: map[string]domain.FieldChange{
			"subject": {To: strPtr("Help")},
			"status":  {To: strPtr("new")},
		},
		Actor:     actor,
		CreatedAt: at(0),
	}}

	events := HumanReadable(domain.EntityTicket, records, nil)
	require.Len(t, events, 1)
	assert.Equal(t, "Ticket created", events[0].Text)
	assert.Equal(t, actor, events[0].Actor)
}

func TestHumanReadableStatusLabels(t *testing.T) {
	cases := map[string]string{
		"in_progress": "Status changed to In Progress",
		"hold":        "Status changed to On Hold",
		"closed":      "Status changed to Closed",
	}
	for to, want := range cases {
		records := []domain.AuditRecord{{
			ID:        "r1",
			Action:    domain.AuditActionUpdate,
			Changes:   map[string]domain.FieldChange{"status": {From: strPtr("x"), To: strPtr(to)}},
			CreatedAt: at(0),
		}}
		events := HumanReadable(domain.EntityTicket, records, nil)
		require.Len(t, events, 1, to)
		assert.Equal(t, want, events[0].Text)
	}
}

// The move into agent_assigned is narrated as an assignment, not a
// status change, so the status line is suppressed.
func TestHumanReadableSuppressesAgentAssignedStatus(t *testing.T) {
	records := []domain.AuditRecord{{
		ID:     "r1",
		Action: domain.AuditActionUpdate,
		Changes: map[string]domain.FieldChange{
			"status":            {From: strPtr("new"), To: strPtr("agent_assigned")},
			"assigned_agent_id": {To: strPtr("agent-1")},
		},
		CreatedAt: at(0),
	}}

	events := HumanReadable(domain.EntityTicket, records, NameIndex{"agent-1": "Dana"})
	require.Len(t, events, 1)
	assert.Equal(t, "Assigned to Dana", events[0].Text)
}

func TestHumanReadableReassignment(t *testing.T) {
	actor := &domain.ActorRef{Type: domain.ActorTypeAgent, ID: "agent-9"}
	records := []domain.AuditRecord{{
		ID:        "r1",
		Action:    domain.AuditActionUpdate,
		Changes:   map[string]domain.FieldChange{"assigned_agent_id": {From: strPtr("agent-1"), To: strPtr("agent-2")}},
		Actor:     actor,
		CreatedAt: at(0),
	}}

	events := HumanReadable(domain.EntityTicket, records, NameIndex{"agent-2": "Lee", "agent-9": "Dana"})
	require.Len(t, events, 1)
	assert.Equal(t, "Reassigned to Lee by Dana", events[0].Text)
}

func TestHumanReadableUnassignmentAndUnknownAgent(t *testing.T) {
	records := []domain.AuditRecord{
		{
			ID:        "r2",
			Action:    domain.AuditActionUpdate,
			Changes:   map[string]domain.FieldChange{"assigned_agent_id": {From: strPtr("agent-1")}},
			CreatedAt: at(1),
		},
		{
			ID:        "r1",
			Action:    domain.AuditActionUpdate,
			Changes:   map[string]domain.FieldChange{"assigned_agent_id": {To: strPtr("agent-gone")}},
			CreatedAt: at(0),
		},
	}

	events := HumanReadable(domain.EntityTicket, records, NameIndex{})
	require.Len(t, events, 2)
	assert.Equal(t, "Agent unassigned", events[0].Text)
	assert.Equal(t, "Assigned to Unknown Agent", events[1].Text)
}

func TestHumanReadableAgentNarration(t *testing.T) {
	accepted := at(5)
	records := []domain.AuditRecord{
		{
			ID:        "r2",
			Action:    domain.AuditActionUpdate,
			Changes:   map[string]domain.FieldChange{"invitation_accepted_at": {To: strPtr(accepted.Format(time.RFC3339))}},
			CreatedAt: at(5),
		},
		{
			ID:     "r1",
			Action: domain.AuditActionCreate,
			Changes: map[string]domain.FieldChange{
				"invited_by_id": {To: strPtr("admin-1")},
			},
			CreatedAt: at(0),
		},
	}

	events := HumanReadable(domain.EntityAgent, records, NameIndex{"admin-1": "Root Admin"})
	require.Len(t, events, 2)
	assert.Equal(t, "Invitation accepted", events[0].Text)
	assert.Equal(t, "Invited by Root Admin", events[1].Text)
}

func TestHumanReadableAgentPasswordReset(t *testing.T) {
	records := []domain.AuditRecord{{
		ID:        "r1",
		Action:    domain.AuditActionUpdate,
		Changes:   map[string]domain.FieldChange{"reset_password_sent_at": {To: strPtr("2026-02-01T10:00:00Z")}},
		CreatedAt: at(0),
	}}

	events := HumanReadable(domain.EntityAgent, records, nil)
	require.Len(t, events, 1)
	assert.Equal(t, "Password reset requested", events[0].Text)
}

func TestHumanReadableCustomerNarration(t *testing.T) {
	records := []domain.AuditRecord{
		{ID: "r2", Action: domain.AuditActionUpdate, Changes: map[string]domain.FieldChange{"name": {From: strPtr("A"), To: strPtr("B")}}, CreatedAt: at(1)},
		{ID: "r1", Action: domain.AuditActionCreate, CreatedAt: at(0)},
	}

	// Customers only narrate their creation; profile edits stay silent.
	events := HumanReadable(domain.EntityCustomer, records, nil)
	require.Len(t, events, 1)
	assert.Equal(t, "Account created", events[0].Text)
}

func TestHumanReadableNewestFirst(t *testing.T) {
	records := []domain.AuditRecord{
		{ID: "r1", Action: domain.AuditActionCreate, CreatedAt: at(0)},
		{ID: "r2", Action: domain.AuditActionUpdate, Changes: map[string]domain.FieldChange{"status": {From: strPtr("new"), To: strPtr("closed")}}, CreatedAt: at(3)},
	}

	events := HumanReadable(domain.EntityTicket, records, nil)
	require.Len(t, events, 2)
	assert.True(t, events[0].OccurredAt.After(events[1].OccurredAt))
	assert.Equal(t, "Status changed to Closed", events[0].Text)
}

// Replays are pure: the same stream always yields the same narrative.
func TestHumanReadableDeterministic(t *testing.T) {
	records := []domain.AuditRecord{
		{ID: "r1", Action: domain.AuditActionCreate, CreatedAt: at(0)},
		{
			ID:     "r2",
			Action: domain.AuditActionUpdate,
			Changes: map[string]domain.FieldChange{
				"status":            {From: strPtr("new"), To: strPtr("agent_assigned")},
				"assigned_agent_id": {To: strPtr("agent-1")},
			},
			CreatedAt: at(1),
		},
		{ID: "r3", Action: domain.AuditActionUpdate, Changes: map[string]domain.FieldChange{"status": {From: strPtr("agent_assigned"), To: strPtr("closed")}}, CreatedAt: at(2)},
	}
	names := NameIndex{"agent-1": "Dana"}

	first := HumanReadable(domain.EntityTicket, records, names)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, HumanReadable(domain.EntityTicket, records, names))
	}
}

func TestReferencedAgentIDs(t *testing.T) {
	records := []domain.AuditRecord{
		{
			Actor:   &domain.ActorRef{Type: domain.ActorTypeAgent, ID: "agent-actor"},
			Changes: map[string]domain.FieldChange{"assigned_agent_id": {From: strPtr("agent-old"), To: strPtr("agent-new")}},
		},
		{
			Actor:   &domain.ActorRef{Type: domain.ActorTypeCustomer, ID: "cust-1"},
			Changes: map[string]domain.FieldChange{"invited_by_id": {To: strPtr("admin-1")}},
		},
		{
			// Duplicates collapse.
			Actor: &domain.ActorRef{Type: domain.ActorTypeAgent, ID: "agent-actor"},
		},
	}

	ids := ReferencedAgentIDs(records)
	assert.ElementsMatch(t, []string{"agent-actor", "agent-old", "agent-new", "admin-1"}, ids)
}
