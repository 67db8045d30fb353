package domain

import "time"

// AuditEntityType identifies the audited aggregate.
type AuditEntityType string

const (
	EntityTicket   AuditEntityType = "Ticket"
	EntityAgent    AuditEntityType = "Agent"
	EntityCustomer AuditEntityType = "Customer"
)

// AuditAction captures what kind of write produced a record.
type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDestroy AuditAction = "destroy"
)

// FieldChange is an old/new pair encoded as strings. Nil means the value
// was absent on that side of the change.
type FieldChange struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// AuditRecord is one immutable row per committed write to an audited
// entity. Records are append-only and are the sole source of historical
// truth; version numbers are monotonic per entity and assigned in the
// same transaction as the entity mutation.
type AuditRecord struct {
	ID         string
	EntityType AuditEntityType
	EntityID   string
	Action     AuditAction
	Changes    map[string]FieldChange
	Actor      *ActorRef
	Version    int
	CreatedAt  time.Time
}

// Change returns the old/new pair for a field, if the record touched it.
func (r *AuditRecord) Change(field string) (FieldChange, bool) {
	c, ok := r.Changes[field]
	return c, ok
}
