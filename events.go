package fuelopt

import (
	"fmt"
	"sync"
	"time"
)

// Severity grades a constraint event.
type Severity uint8

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	panic("cannot stringify unknown severity")
}

// ConstraintClass identifies which threshold (or loop condition) an event
// reports on.
type ConstraintClass uint8

const (
	ConstraintFuel ConstraintClass = iota + 1
	ConstraintPower
	ConstraintDecayRate
	ConstraintTemperature
	// ConstraintCycleSkipped marks an optimization cycle dropped because a
	// previous one was still in flight.
	ConstraintCycleSkipped
	// ConstraintTickFailure marks a recovered panic inside a loop tick.
	ConstraintTickFailure
)

func (c ConstraintClass) String() string {
	switch c {
	case ConstraintFuel:
		return "fuel"
	case ConstraintPower:
		return "power"
	case ConstraintDecayRate:
		return "decay-rate"
	case ConstraintTemperature:
		return "temperature"
	case ConstraintCycleSkipped:
		return "cycle-skipped"
	case ConstraintTickFailure:
		return "tick-failure"
	}
	panic("cannot stringify unknown constraint class")
}

// ConstraintEvent is an immutable record of a constraint violation or loop
// condition, emitted by a real-time session's monitor.
type ConstraintEvent struct {
	Class       ConstraintClass
	Severity    Severity
	Description string
	Stamp       time.Time
}

func (e ConstraintEvent) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Class, e.Description)
}

// eventHistory is an append-only event log shared by a session's loops.
type eventHistory struct {
	mu     sync.RWMutex
	events []ConstraintEvent
}

func (h *eventHistory) append(e ConstraintEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

// tail returns up to n most recent events, oldest first.
func (h *eventHistory) tail(n int) []ConstraintEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.events) {
		n = len(h.events)
	}
	out := make([]ConstraintEvent, n)
	copy(out, h.events[len(h.events)-n:])
	return out
}

func (h *eventHistory) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}
