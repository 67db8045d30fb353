package domain

// ActorType differentiates the two authenticated principal variants.
type ActorType string

const (
	ActorTypeCustomer ActorType = "CUSTOMER"
	ActorTypeAgent    ActorType = "AGENT"
)

// Actor is the authenticated principal: exactly one of Customer or Agent
// is set, selected by Type. Code that cares about the variant branches on
// the tag, never on pointer sniffing.
type Actor struct {
	Type     ActorType
	Customer *Customer
	Agent    *Agent
}

// CustomerActor wraps a customer as the current actor.
func CustomerActor(c *Customer) *Actor {
	return &Actor{Type: ActorTypeCustomer, Customer: c}
}

// AgentActor wraps an agent as the current actor.
func AgentActor(a *Agent) *Actor {
	return &Actor{Type: ActorTypeAgent, Agent: a}
}

// ID returns the identity of the underlying principal.
func (a *Actor) ID() string {
	if a == nil {
		return ""
	}
	switch a.Type {
	case ActorTypeCustomer:
		if a.Customer != nil {
			return a.Customer.ID
		}
	case ActorTypeAgent:
		if a.Agent != nil {
			return a.Agent.ID
		}
	}
	return ""
}

// Name returns the display name of the underlying principal.
func (a *Actor) Name() string {
	if a == nil {
		return ""
	}
	switch a.Type {
	case ActorTypeCustomer:
		if a.Customer != nil {
			return a.Customer.Name
		}
	case ActorTypeAgent:
		if a.Agent != nil {
			return a.Agent.Name
		}
	}
	return ""
}

// IsCustomer reports whether the actor is a customer.
func (a *Actor) IsCustomer() bool {
	return a != nil && a.Type == ActorTypeCustomer && a.Customer != nil
}

// IsAgent reports whether the actor is an agent.
func (a *Actor) IsAgent() bool {
	return a != nil && a.Type == ActorTypeAgent && a.Agent != nil
}

// IsAdmin reports whether the actor is an administrator agent.
func (a *Actor) IsAdmin() bool {
	return a.IsAgent() && a.Agent.IsAdmin
}

// Ref returns the (type, id) reference persisted alongside audit records.
func (a *Actor) Ref() *ActorRef {
	if a == nil || a.ID() == "" {
		return nil
	}
	return &ActorRef{Type: a.Type, ID: a.ID()}
}

// ActorRef is a lightweight actor reference for audit rows and tokens.
// A nil ActorRef denotes a system-initiated change.
type ActorRef struct {
	Type ActorType
	ID   string
}
