package domain

import "time"

// Comment belongs to exactly one ticket and is authored by exactly one
// actor, customer or agent.
type Comment struct {
	ID         string
	TicketID   string
	AuthorType ActorType
	AuthorID   string
	Body       string
	CreatedAt  time.Time
}
