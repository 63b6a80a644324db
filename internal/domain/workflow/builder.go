package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a transition should be taken. Guards read
// decision data (such as the routing outcome) from the context.
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a status configuration for the given status
	Configure(status Status) StatusConfiguration

	// Build creates a new state machine instance with the given initial status
	Build(initial Status) StateMachine
}

// StatusConfiguration configures transitions for a specific status
type StatusConfiguration interface {
	// Permit allows an action to transition to the target status
	Permit(action Action, to Status) StatusConfiguration

	// PermitIf allows an action to transition to the target status if the
	// guard condition passes. Multiple guarded transitions for the same
	// action are tried in registration order.
	PermitIf(action Action, to Status, guard GuardFunc) StatusConfiguration

	// PermitReentry allows an action that keeps the request in the same
	// status while still counting as a transition (self-loop)
	PermitReentry(action Action) StatusConfiguration
}

// transition represents a state transition with optional guard
type transition struct {
	to    Status
	guard GuardFunc
}

type statusConfig struct {
	from        Status
	transitions map[Action][]transition
}

type stateMachineBuilder struct {
	configurations map[Status]*statusConfig
}

type stateMachine struct {
	current        Status
	configurations map[Status]*statusConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Status]*statusConfig),
	}
}

// Configure returns a status configuration for the given status
func (b *stateMachineBuilder) Configure(status Status) StatusConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}

	config, exists := b.configurations[status]
	if !exists {
		config = &statusConfig{
			from:        status,
			transitions: make(map[Action][]transition),
		}
		b.configurations[status] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial status
func (b *stateMachineBuilder) Build(initial Status) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}

	// Deep copy configurations so built machines are unaffected by further
	// builder mutation
	configsCopy := make(map[Status]*statusConfig)
	for status, config := range b.configurations {
		transitionsCopy := make(map[Action][]transition)
		for action, transitions := range config.transitions {
			transitionsCopy[action] = append([]transition{}, transitions...)
		}
		configsCopy[status] = &statusConfig{
			from:        status,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

// Permit allows an action to transition to the target status
func (c *statusConfig) Permit(action Action, to Status) StatusConfiguration {
	return c.PermitIf(action, to, nil)
}

// PermitIf allows an action to transition to the target status if the guard passes
func (c *statusConfig) PermitIf(action Action, to Status, guard GuardFunc) StatusConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}

	c.transitions[action] = append(c.transitions[action], transition{
		to:    to,
		guard: guard,
	})

	return c
}

// PermitReentry allows a self-loop transition for the action
func (c *statusConfig) PermitReentry(action Action) StatusConfiguration {
	return c.PermitIf(action, c.from, nil)
}

// Status returns the current status
func (m *stateMachine) Status() Status {
	return m.current
}

// CanFire returns true if the action is permitted in the current status
func (m *stateMachine) CanFire(action Action) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}

	transitions, exists := config.transitions[action]
	return exists && len(transitions) > 0
}

// Fire attempts to execute the action, transitioning to the new status if allowed
func (m *stateMachine) Fire(ctx context.Context, action Action) error {
	config, exists := m.configurations[m.current]
	if !exists {
		return fmt.Errorf("%w: cannot fire action %s from status %s (no configuration)", ErrInvalidTransition, action, m.current)
	}

	transitions, exists := config.transitions[action]
	if !exists || len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire action %s from status %s", ErrInvalidTransition, action, m.current)
	}

	// Try each transition in order until one's guard passes
	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: action %s from status %s", ErrGuardFailed, action, m.current)
}

// PermittedActions returns all actions that can be fired in the current status
func (m *stateMachine) PermittedActions() []Action {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Action{}
	}

	actions := make([]Action, 0, len(config.transitions))
	for action := range config.transitions {
		actions = append(actions, action)
	}

	return actions
}
