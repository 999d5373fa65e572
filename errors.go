package fuelopt

import "errors"

var (
	// ErrDegenerateOrbit is returned when a state vector cannot be expressed
	// as elliptical orbital elements (near-zero angular momentum, or a
	// parabolic/unbound trajectory).
	ErrDegenerateOrbit = errors.New("degenerate orbit: cannot compute elliptical elements")
	// ErrInvalidOrbit is returned for physically impossible orbit parameters.
	ErrInvalidOrbit = errors.New("invalid orbit parameters")
	// ErrNoSolution is returned when a boundary-value solver does not
	// converge within its iteration cap.
	ErrNoSolution = errors.New("solver did not converge")
	// ErrInfeasibleBurn is returned when a maneuver requires more fuel than
	// is available.
	ErrInfeasibleBurn = errors.New("burn requires more fuel than available")
	// ErrUnreachableTarget is returned when no candidate trajectory satisfies
	// the mission's hard constraints.
	ErrUnreachableTarget = errors.New("no trajectory satisfies mission constraints")
)
