// Package lifecycle provides a generic guarded finite-state machine and
// the concrete ticket lifecycle built on it.
package lifecycle

import (
	"fmt"

	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// State is a named machine state.
type State string

// Event is a named trigger declaring its allowed transitions.
type Event string

// Transition is one allowed (from, to) pair for an event.
type Transition struct {
	From State
	To   State
}

// Definition declares a machine: its states, the initial state, and the
// transition pairs per event.
type Definition struct {
	Name    string
	States  []State
	Initial State
	Events  map[Event][]Transition
}

// Machine is an immutable compiled state machine. It holds no entity
// state; callers pass the current state on every query or command.
type Machine struct {
	name    string
	initial State
	states  map[State]struct{}
	events  map[Event][]Transition
}

// New compiles a definition. It panics on an inconsistent definition
// (unknown state referenced by a transition) since definitions are
// package-level constants, not runtime input.
func New(def Definition) *Machine {
	m := &Machine{
		name:    def.Name,
		initial: def.Initial,
		states:  make(map[State]struct{}, len(def.States)),
		events:  make(map[Event][]Transition, len(def.Events)),
	}
	for _, s := range def.States {
		m.states[s] = struct{}{}
	}
	if _, ok := m.states[def.Initial]; !ok {
		panic(fmt.Sprintf("lifecycle %s: initial state %q not declared", def.Name, def.Initial))
	}
	for event, transitions := range def.Events {
		for _, t := range transitions {
			if _, ok := m.states[t.From]; !ok {
				panic(fmt.Sprintf("lifecycle %s: event %q references unknown state %q", def.Name, event, t.From))
			}
			if _, ok := m.states[t.To]; !ok {
				panic(fmt.Sprintf("lifecycle %s: event %q references unknown state %q", def.Name, event, t.To))
			}
		}
		m.events[event] = append([]Transition(nil), transitions...)
	}
	return m
}

// Initial returns the designated initial state.
func (m *Machine) Initial() State {
	return m.initial
}

// Knows reports whether the event name exists in the machine at all.
// Callers use this to distinguish "no such event" from "valid event,
// wrong state".
func (m *Machine) Knows(event Event) bool {
	_, ok := m.events[event]
	return ok
}

// MayFire reports whether firing event from current would succeed.
func (m *Machine) MayFire(event Event, current State) bool {
	for _, t := range m.events[event] {
		if t.From == current {
			return true
		}
	}
	return false
}

// Fire resolves the target state for event from current. An unknown
// event yields INVALID_EVENT; a known event with no matching source
// state yields INVALID_TRANSITION.
func (m *Machine) Fire(event Event, current State) (State, error) {
	transitions, ok := m.events[event]
	if !ok {
		return "", apperrors.NewInvalidEvent(fmt.Sprintf("unknown event %q", event))
	}
	for _, t := range transitions {
		if t.From == current {
			return t.To, nil
		}
	}
	return "", apperrors.NewInvalidTransition(fmt.Sprintf("cannot %s from %s", event, current))
}

// AvailableEvents lists the events fireable from current, in no
// particular order.
func (m *Machine) AvailableEvents(current State) []Event {
	var out []Event
	for event := range m.events {
		if m.MayFire(event, current) {
			out = append(out, event)
		}
	}
	return out
}
