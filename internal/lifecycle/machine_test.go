package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

func testMachine() *Machine {
	return New(Definition{
		Name:    "door",
		Initial: "closed",
		States:  []State{"closed", "open", "locked"},
		Events: map[Event][]Transition{
			"open":   {{From: "closed", To: "open"}},
			"close":  {{From: "open", To: "closed"}},
			"lock":   {{From: "closed", To: "locked"}},
			"unlock": {{From: "locked", To: "closed"}},
		},
	})
}

func TestMachineFire(t *testing.T) {
	m := testMachine()

	next, err := m.Fire("open", "closed")
	require.NoError(t, err)
	assert.Equal(t, State("open"), next)

	_, err = m.Fire("lock", "open")
	requireKind(t, err, apperrors.KindInvalidTransition)

	_, err = m.Fire("explode", "closed")
	requireKind(t, err, apperrors.KindInvalidEvent)
}

func TestMachineKnows(t *testing.T) {
	m := testMachine()
	assert.True(t, m.Knows("open"))
	assert.False(t, m.Knows("explode"))
}

func TestMachineMayFire(t *testing.T) {
	m := testMachine()
	assert.True(t, m.MayFire("lock", "closed"))
	assert.False(t, m.MayFire("lock", "open"))
	assert.False(t, m.MayFire("explode", "closed"))
}

func TestMachineAvailableEvents(t *testing.T) {
	m := testMachine()
	events := m.AvailableEvents("closed")
	assert.ElementsMatch(t, []Event{"open", "lock"}, events)
	assert.Empty(t, m.AvailableEvents("unknown-state"))
}

func TestMachineInitial(t *testing.T) {
	assert.Equal(t, State("closed"), testMachine().Initial())
}

func TestNewPanicsOnUnknownState(t *testing.T) {
	assert.Panics(t, func() {
		New(Definition{
			Name:    "broken",
			Initial: "a",
			States:  []State{"a"},
			Events: map[Event][]Transition{
				"go": {{From: "a", To: "b"}},
			},
		})
	})
}

func requireKind(t *testing.T, err error, kind apperrors.ErrorKind) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, kind, domainErr.Kind)
}
