package mutation

import (
	"time"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/lifecycle"
)

// CustomerView is the wire shape of a customer.
type CustomerView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentView is the wire shape of an agent.
type AgentView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketView is the wire shape of a ticket. AvailableEvents lists the
// lifecycle events fireable from the current status so clients can
// render their action menus without duplicating the transition table.
type TicketView struct {
	ID              string              `json:"id"`
	TicketNumber    string              `json:"ticket_number"`
	Subject         string              `json:"subject"`
	Description     string              `json:"description"`
	Status          domain.TicketStatus `json:"status"`
	CustomerID      string              `json:"customer_id"`
	AssignedAgentID *string             `json:"assigned_agent_id,omitempty"`
	CommentsCount   int                 `json:"comments_count"`
	AvailableEvents []string            `json:"available_events"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// CommentView is the wire shape of a comment.
type CommentView struct {
	ID         string           `json:"id"`
	TicketID   string           `json:"ticket_id"`
	AuthorType domain.ActorType `json:"author_type"`
	AuthorID   string           `json:"author_id"`
	Body       string           `json:"body"`
	CreatedAt  time.Time        `json:"created_at"`
}

// SessionResult carries a signed-in user plus the credentials the
// transport layer turns into cookies. The tokens never serialize into
// the response body.
type SessionResult struct {
	Role         domain.ActorType `json:"role"`
	User         any              `json:"user"`
	AccessToken  string           `json:"-"`
	RefreshToken string           `json:"-"`
}

// SuccessResult is the payload of mutations that only acknowledge.
type SuccessResult struct {
	Success bool `json:"success"`
}

// ExportResult is the payload of export_closed_tickets: inline CSV for
// small exports, otherwise an acknowledgement that mail is coming.
type ExportResult struct {
	Async bool   `json:"async"`
	Count int    `json:"count"`
	CSV   string `json:"csv,omitempty"`
}

// NewCustomerView builds the wire shape.
func NewCustomerView(c *domain.Customer) *CustomerView {
	return &CustomerView{ID: c.ID, Name: c.Name, Email: c.Email, CreatedAt: c.CreatedAt}
}

// NewAgentView builds the wire shape.
func NewAgentView(a *domain.Agent) *AgentView {
	return &AgentView{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		IsAdmin:   a.IsAdmin,
		Active:    a.Active(),
		CreatedAt: a.CreatedAt,
	}
}

// NewTicketView builds the wire shape with available events resolved.
func NewTicketView(t *domain.Ticket) *TicketView {
	machineEvents := lifecycle.TicketMachine().AvailableEvents(lifecycle.State(t.Status))
	available := make([]string, len(machineEvents))
	for i, event := range machineEvents {
		available[i] = string(event)
	}
	return &TicketView{
		ID:              t.ID,
		TicketNumber:    t.TicketNumber,
		Subject:         t.Subject,
		Description:     t.Description,
		Status:          t.Status,
		CustomerID:      t.CustomerID,
		AssignedAgentID: t.AssignedAgentID,
		CommentsCount:   t.CommentsCount,
		AvailableEvents: available,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// NewCommentView builds the wire shape.
func NewCommentView(c *domain.Comment) *CommentView {
	return &CommentView{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorType: c.AuthorType,
		AuthorID:   c.AuthorID,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
	}
}
