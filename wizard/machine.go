package wizard

import (
	"sync"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// State is the wizard's position.
type State int

const (
	Idle State = iota
	Configured
	Compared
	Optimized
	Saved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Configured:
		return "Configured"
	case Compared:
		return "Compared"
	case Optimized:
		return "Optimized"
	case Saved:
		return "Saved"
	default:
		return "Unknown"
	}
}

// Trigger is a user action that moves the wizard.
type Trigger string

const (
	TriggerSetup    Trigger = "setup"
	TriggerCompare  Trigger = "compare"
	TriggerOptimize Trigger = "optimize"
	TriggerSave     Trigger = "save"
	TriggerReset    Trigger = "reset"
)

type transition struct {
	from []State
	to   State
}

var transitions = map[Trigger]transition{
	TriggerSetup:    {from: []State{Idle, Configured, Compared, Optimized, Saved}, to: Configured},
	TriggerCompare:  {from: []State{Configured, Compared}, to: Compared},
	TriggerOptimize: {from: []State{Compared, Optimized}, to: Optimized},
	TriggerSave:     {from: []State{Optimized, Saved}, to: Saved},
	TriggerReset:    {from: []State{Idle, Configured, Compared, Optimized, Saved}, to: Idle},
}

// Allowed reports whether t may fire in state s.
func Allowed(s State, t Trigger) bool {
	tr, ok := transitions[t]
	if !ok {
		return false
	}
	for _, from := range tr.from {
		if from == s {
			return true
		}
	}
	return false
}

// Machine holds the state of one wizard. Fire runs a trigger's work under
// the write lock, so triggers of one machine never overlap.
type Machine struct {
	mu    sync.RWMutex
	state State
}

// NewMachine returns a machine in Idle.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Fire checks that t is allowed, runs fn and moves to t's target state when
// fn succeeds. On any error the state is unchanged.
func (m *Machine) Fire(t Trigger, fn func(from State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !Allowed(m.state, t) {
		return errors.NewInvalidTransitionError(m.state.String(), string(t))
	}
	if fn != nil {
		if err := fn(m.state); err != nil {
			return err
		}
	}
	m.state = transitions[t].to
	return nil
}

// View runs fn with the state locked for reading.
func (m *Machine) View(fn func(State)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.state)
}
