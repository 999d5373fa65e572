package fuelopt

import (
	"fmt"
	"math"
	"time"

	"github.com/ChristopherRabotin/ode"
)

const (
	// PropagationStep is the default step size of numerical propagation.
	PropagationStep = 10 * time.Second
	// keplerTol is the convergence tolerance on the eccentric anomaly when
	// solving Kepler's equation.
	keplerTol = 1e-12
	// keplerMaxIter bounds the Newton iterations of the Kepler solver.
	keplerMaxIter = 50
	// EnergyDriftTol is the documented relative specific-energy drift
	// tolerance of Propagate over one full orbital period.
	EnergyDriftTol = 1e-9
)

// trueAnomalyFromMean solves Kepler's equation M = E - e sinE via Newton
// iterations, then converts the eccentric anomaly to a true anomaly.
// Deterministic for identical inputs.
func trueAnomalyFromMean(M, e float64) float64 {
	E := M
	if e > 0.8 {
		E = math.Pi // better seed for highly eccentric orbits
	}
	for k := 0; k < keplerMaxIter; k++ {
		f := E - e*math.Sin(E) - M
		if math.Abs(f) < keplerTol {
			break
		}
		E -= f / (1 - e*math.Cos(E))
	}
	sinE2, cosE2 := math.Sincos(E / 2)
	return 2 * math.Atan2(math.Sqrt(1+e)*sinE2, math.Sqrt(1-e)*cosE2)
}

// Propagate advances the provided state vector by the given duration using
// two-body Keplerian motion with optional secular J2 corrections on the RAAN
// and the argument of perigee. A zero duration returns the state unchanged.
func Propagate(s StateVector, Δt time.Duration, perts Perturbations, body CelestialObject) (StateVector, error) {
	if Δt == 0 {
		return s, nil
	}
	o, err := OrbitFromState(s, body)
	if err != nil {
		return StateVector{}, fmt.Errorf("propagate: %w", err)
	}
	M := math.Mod(o.MeanAnomaly()+o.MeanMotion()*Δt.Seconds(), 2*math.Pi)
	ν := trueAnomalyFromMean(M, o.e)
	ΩDot, ωDot := perts.SecularJ2Rates(*o)
	next := Orbit{
		o.a, o.e, o.i,
		math.Mod(o.Ω+ΩDot*Δt.Seconds(), 2*math.Pi),
		math.Mod(o.ω+ωDot*Δt.Seconds(), 2*math.Pi),
		math.Mod(ν+2*math.Pi, 2*math.Pi),
		o.Origin,
	}
	return next.StateVector(s.Epoch.Add(Δt)), nil
}

// ThrustProfile returns the inertial thrust acceleration (km/s^2) and the
// fuel mass flow rate (kg/s) at elapsed time t for the given state.
type ThrustProfile func(t float64, s StateVector) (accel []float64, mdot float64)

// cartesianArc integrates Cartesian two-body motion with perturbations and an
// optional thrust profile. It implements ode.Integrable.
type cartesianArc struct {
	R, V     []float64
	fuelMass float64
	body     CelestialObject
	perts    Perturbations
	thrust   ThrustProfile
	epoch    time.Time
	step     time.Duration
	elapsed  time.Duration
	duration time.Duration
}

// GetState returns the state for the integrator.
func (a *cartesianArc) GetState() (s []float64) {
	s = make([]float64, 7)
	for i := 0; i < 3; i++ {
		s[i] = a.R[i]
		s[i+3] = a.V[i]
	}
	s[6] = a.fuelMass
	return
}

// SetState sets the updated state.
func (a *cartesianArc) SetState(t float64, s []float64) {
	a.R = []float64{s[0], s[1], s[2]}
	a.V = []float64{s[3], s[4], s[5]}
	a.fuelMass = s[6]
	a.elapsed += a.step
}

// Stop implements the stop call of the integrator.
func (a *cartesianArc) Stop(t float64) bool {
	return a.elapsed >= a.duration
}

// Func is the two-body equation of motion with perturbations and thrust.
func (a *cartesianArc) Func(t float64, f []float64) (fDot []float64) {
	fDot = make([]float64, 7)
	R := []float64{f[0], f[1], f[2]}
	bodyAcc := -a.body.μ / math.Pow(norm(R), 3)
	var thrustAcc []float64
	var mdot float64
	if a.thrust != nil {
		thrustAcc, mdot = a.thrust(t, StateVector{R, []float64{f[3], f[4], f[5]}, a.epoch.Add(a.elapsed)})
	} else {
		thrustAcc = []float64{0, 0, 0}
	}
	pert := a.perts.Accel(R, a.body)
	// d\vec{R}/dt
	fDot[0] = f[3]
	fDot[1] = f[4]
	fDot[2] = f[5]
	// d\vec{V}/dt
	for i := 0; i < 3; i++ {
		fDot[i+3] = bodyAcc*f[i] + pert[i] + thrustAcc[i]
		if math.IsNaN(fDot[i+3]) {
			panic(fmt.Errorf("fDot[%d]=NaN @ t=%f R=%+v", i+3, t, R))
		}
	}
	// d(fuel)/dt
	fDot[6] = -mdot
	return
}

// NumericalPropagate integrates the state forward with an RK4 integrator,
// accounting for perturbations and an optional thrust profile. It returns the
// final state and the remaining fuel mass.
func NumericalPropagate(s StateVector, fuelMass float64, Δt time.Duration, perts Perturbations, body CelestialObject, step time.Duration, thrust ThrustProfile) (StateVector, float64) {
	if Δt <= 0 {
		return s, fuelMass
	}
	if step <= 0 {
		step = PropagationStep
	}
	arc := &cartesianArc{
		R: append([]float64{}, s.R...), V: append([]float64{}, s.V...),
		fuelMass: fuelMass, body: body, perts: perts, thrust: thrust,
		epoch: s.Epoch, step: step, duration: Δt,
	}
	ode.NewRK4(0, step.Seconds(), arc).Solve() // Blocking.
	return StateVector{arc.R, arc.V, s.Epoch.Add(Δt)}, arc.fuelMass
}
