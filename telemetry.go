package fuelopt

import (
	"math/rand"
	"time"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

// VehicleState is the live spacecraft state a real-time session tracks.
// Mutated only by the session's monitor loop.
type VehicleState struct {
	DryMass     float64 // kg
	FuelMass    float64 // kg, non-increasing during a run
	PowerLevel  float64 // fraction of nominal bus power, in [0, 1]
	Temperature float64 // K
	State       StateVector
	Stamp       time.Time
}

// TotalMass returns the current wet mass in kg.
func (v VehicleState) TotalMass() float64 {
	return v.DryMass + v.FuelMass
}

// Telemetry feeds fresh vehicle state to a real-time session's monitor loop.
type Telemetry interface {
	// Next returns the vehicle state Δt after prev.
	Next(prev VehicleState, Δt time.Duration) (VehicleState, error)
}

// SimulatedTelemetry models slow station-keeping losses: steady fuel draw
// with Gaussian jitter, a power random walk, and two-body + J2 motion.
type SimulatedTelemetry struct {
	Body          CelestialObject
	FuelDrawRate  float64 // kg/s steady consumption
	PowerDrift    float64 // fraction lost per hour
	fuelNoise     *distmv.Normal
	powerNoise    *distmv.Normal
	perturbations Perturbations
}

// NewSimulatedTelemetry returns a simulated source with the given steady fuel
// draw (kg/s) and power drift (fraction/hour), seeded for reproducibility.
func NewSimulatedTelemetry(body CelestialObject, fuelDraw, powerDrift float64, seed int64) *SimulatedTelemetry {
	src := rand.New(rand.NewSource(seed))
	fuelNoise, ok := distmv.NewNormal([]float64{0}, mat64.NewSymDense(1, []float64{1e-8}), src)
	if !ok {
		panic("NOK in Gaussian")
	}
	powerNoise, ok := distmv.NewNormal([]float64{0}, mat64.NewSymDense(1, []float64{1e-6}), src)
	if !ok {
		panic("NOK in Gaussian")
	}
	return &SimulatedTelemetry{
		Body:          body,
		FuelDrawRate:  fuelDraw,
		PowerDrift:    powerDrift,
		fuelNoise:     fuelNoise,
		powerNoise:    powerNoise,
		perturbations: Perturbations{Jn: 2},
	}
}

// Next implements Telemetry.
func (st *SimulatedTelemetry) Next(prev VehicleState, Δt time.Duration) (VehicleState, error) {
	next := prev
	sec := Δt.Seconds()
	next.FuelMass -= st.FuelDrawRate*sec + st.fuelNoise.Rand(nil)[0]*sec
	if next.FuelMass < 0 {
		next.FuelMass = 0
	}
	next.PowerLevel -= st.PowerDrift*sec/3600 + st.powerNoise.Rand(nil)[0]
	if next.PowerLevel < 0 {
		next.PowerLevel = 0
	} else if next.PowerLevel > 1 {
		next.PowerLevel = 1
	}
	state, err := Propagate(prev.State, Δt, st.perturbations, st.Body)
	if err != nil {
		return prev, err
	}
	next.State = state
	next.Stamp = prev.Stamp.Add(Δt)
	return next, nil
}

// ScriptedTelemetry replays a fixed sequence of vehicle states, then holds
// the last one. Deterministic source for tests and demos.
type ScriptedTelemetry struct {
	Steps []VehicleState
	pos   int
}

// Next implements Telemetry.
func (st *ScriptedTelemetry) Next(prev VehicleState, Δt time.Duration) (VehicleState, error) {
	if len(st.Steps) == 0 {
		return prev, nil
	}
	if st.pos >= len(st.Steps) {
		return st.Steps[len(st.Steps)-1], nil
	}
	next := st.Steps[st.pos]
	st.pos++
	return next, nil
}
