package domain

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TicketStatus enumerates lifecycle states. Status only ever changes
// through a lifecycle event; nothing mutates it directly.
type TicketStatus string

const (
	TicketStatusNew           TicketStatus = "new"
	TicketStatusAgentAssigned TicketStatus = "agent_assigned"
	TicketStatusInProgress    TicketStatus = "in_progress"
	TicketStatusHold          TicketStatus = "hold"
	TicketStatusClosed        TicketStatus = "closed"
)

// OpenStatuses are every non-terminal status.
var OpenStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAgentAssigned,
	TicketStatusInProgress,
	TicketStatusHold,
}

// Ticket is the aggregate for support requests. ClosedAt is derived from
// the audit stream, never stored.
type Ticket struct {
	ID              string
	TicketNumber    string
	CustomerID      string
	AssignedAgentID *string
	Subject         string
	Description     string
	Status          TicketStatus
	CommentsCount   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Ticket numbers are short human-shareable codes. The alphabet drops
// ambiguous characters (0/O, 1/I).
const (
	TicketNumberAlphabet   = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	TicketNumberLength     = 8
	TicketNumberMaxRetries = 5
)

// GenerateTicketNumber produces a random ticket number. Uniqueness is
// enforced by the store; callers retry on collision.
func GenerateTicketNumber() string {
	max := big.NewInt(int64(len(TicketNumberAlphabet)))
	out := make([]byte, TicketNumberLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			panic(err)
		}
		out[i] = TicketNumberAlphabet[n.Int64()]
	}
	return string(out)
}
