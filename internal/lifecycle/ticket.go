package lifecycle

import "github.com/spec-kit/tix-api/internal/domain"

// Ticket lifecycle events.
const (
	EventAssignAgent   Event = "assign_agent"
	EventStartProgress Event = "start_progress"
	EventPutOnHold     Event = "put_on_hold"
	EventResume        Event = "resume"
	EventClose         Event = "close"
)

var ticketMachine = New(Definition{
	Name:    "ticket",
	Initial: State(domain.TicketStatusNew),
	States: []State{
		State(domain.TicketStatusNew),
		State(domain.TicketStatusAgentAssigned),
		State(domain.TicketStatusInProgress),
		State(domain.TicketStatusHold),
		State(domain.TicketStatusClosed),
	},
	Events: map[Event][]Transition{
		EventAssignAgent: {
			{From: State(domain.TicketStatusNew), To: State(domain.TicketStatusAgentAssigned)},
		},
		EventStartProgress: {
			{From: State(domain.TicketStatusAgentAssigned), To: State(domain.TicketStatusInProgress)},
			{From: State(domain.TicketStatusHold), To: State(domain.TicketStatusInProgress)},
		},
		EventPutOnHold: {
			{From: State(domain.TicketStatusInProgress), To: State(domain.TicketStatusHold)},
		},
		EventResume: {
			{From: State(domain.TicketStatusHold), To: State(domain.TicketStatusInProgress)},
		},
		EventClose: {
			{From: State(domain.TicketStatusAgentAssigned), To: State(domain.TicketStatusClosed)},
			{From: State(domain.TicketStatusInProgress), To: State(domain.TicketStatusClosed)},
			{From: State(domain.TicketStatusHold), To: State(domain.TicketStatusClosed)},
		},
	},
})

// TicketMachine returns the shared ticket lifecycle. No event leaves
// "closed"; it is an intentional terminal state.
func TicketMachine() *Machine {
	return ticketMachine
}

// FireTicket resolves the event against the ticket's current status and
// returns the new status. The caller persists the change, which captures
// it in the audit log before the surrounding transaction commits.
func FireTicket(event Event, ticket *domain.Ticket) (domain.TicketStatus, error) {
	next, err := ticketMachine.Fire(event, State(ticket.Status))
	if err != nil {
		return "", err
	}
	return domain.TicketStatus(next), nil
}
