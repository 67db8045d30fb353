package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tix-api/internal/domain"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// Every event against every status. An empty want means the transition
// is rejected with INVALID_TRANSITION.
func TestTicketMachineMatrix(t *testing.T) {
	matrix := map[Event]map[domain.TicketStatus]domain.TicketStatus{
		EventAssignAgent: {
			domain.TicketStatusNew: domain.TicketStatusAgentAssigned,
		},
		EventStartProgress: {
			domain.TicketStatusAgentAssigned: domain.TicketStatusInProgress,
			domain.TicketStatusHold:          domain.TicketStatusInProgress,
		},
		EventPutOnHold: {
			domain.TicketStatusInProgress: domain.TicketStatusHold,
		},
		EventResume: {
			domain.TicketStatusHold: domain.TicketStatusInProgress,
		},
		EventClose: {
			domain.TicketStatusAgentAssigned: domain.TicketStatusClosed,
			domain.TicketStatusInProgress:    domain.TicketStatusClosed,
			domain.TicketStatusHold:          domain.TicketStatusClosed,
		},
	}
	statuses := []domain.TicketStatus{
		domain.TicketStatusNew,
		domain.TicketStatusAgentAssigned,
		domain.TicketStatusInProgress,
		domain.TicketStatusHold,
		domain.TicketStatusClosed,
	}

	m := TicketMachine()
	for event, allowed := range matrix {
		for _, status := range statuses {
			next, err := m.Fire(event, State(status))
			if want, ok := allowed[status]; ok {
				require.NoError(t, err, "%s from %s", event, status)
				assert.Equal(t, State(want), next, "%s from %s", event, status)
			} else {
				requireKind(t, err, apperrors.KindInvalidTransition)
			}
		}
	}
}

func TestTicketMachineClosedIsTerminal(t *testing.T) {
	assert.Empty(t, TicketMachine().AvailableEvents(State(domain.TicketStatusClosed)))
}

func TestTicketMachineInitial(t *testing.T) {
	assert.Equal(t, State(domain.TicketStatusNew), TicketMachine().Initial())
}

func TestFireTicket(t *testing.T) {
	ticket := &domain.Ticket{Status: domain.TicketStatusNew}

	next, err := FireTicket(EventAssignAgent, ticket)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAgentAssigned, next)
	// FireTicket resolves the target; persisting is the caller's job.
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)

	_, err = FireTicket(Event("reopen"), ticket)
	requireKind(t, err, apperrors.KindInvalidEvent)
}
