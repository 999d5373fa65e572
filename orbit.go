package fuelopt

import (
	"fmt"
	"math"
	"time"

	"github.com/gonum/floats"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	distanceε     = 2e1                          // 20 km
	velocityε     = 1e-6                         // in km/s
	momentumε     = 1e-8                         // km^2/s, below this the trajectory is rectilinear
)

// StateVector holds an inertial position and velocity pair at a given epoch.
type StateVector struct {
	R     []float64 // km
	V     []float64 // km/s
	Epoch time.Time
}

// Altitude returns the altitude above the surface of the given body.
func (s StateVector) Altitude(body CelestialObject) float64 {
	return norm(s.R) - body.Radius
}

// Energyξ returns the specific mechanical energy ξ of this state about the given body.
func (s StateVector) Energyξ(body CelestialObject) float64 {
	return math.Pow(norm(s.V), 2)/2 - body.μ/norm(s.R)
}

func (s StateVector) String() string {
	return fmt.Sprintf("R=%+v km\tV=%+v km/s\t@%s", s.R, s.V, s.Epoch.Format(time.RFC3339))
}

// Orbit defines an orbit via its orbital elements.
type Orbit struct {
	a, e, i, Ω, ω, ν float64
	Origin           CelestialObject
}

// Energyξ returns the specific mechanical energy ξ.
func (o Orbit) Energyξ() float64 {
	return -o.Origin.μ / (2 * o.a)
}

// TildeΩ returns the longitude of periapsis.
func (o Orbit) TildeΩ() float64 {
	return math.Mod(o.ω+o.Ω, 2*math.Pi)
}

// ArgLatitudeU returns the argument of latitude.
func (o Orbit) ArgLatitudeU() float64 {
	return math.Mod(o.ν+o.ω, 2*math.Pi)
}

// SemiParameter returns the semi parameter.
func (o Orbit) SemiParameter() float64 {
	return o.a * (1 - o.e*o.e)
}

// Apoapsis returns the apoapsis radius.
func (o Orbit) Apoapsis() float64 {
	return o.a * (1 + o.e)
}

// Periapsis returns the periapsis radius.
func (o Orbit) Periapsis() float64 {
	return o.a * (1 - o.e)
}

// SinCosE returns the eccentric anomaly trig functions (sin and cos).
func (o Orbit) SinCosE() (sinE, cosE float64) {
	sinν, cosν := math.Sincos(o.ν)
	denom := 1 + o.e*cosν
	sinE = math.Sqrt(1-o.e*o.e) * sinν / denom
	cosE = (o.e + cosν) / denom
	return
}

// MeanAnomaly returns the mean anomaly for this orbit.
func (o Orbit) MeanAnomaly() float64 {
	sinE, cosE := o.SinCosE()
	E := math.Atan2(sinE, cosE)
	return E - o.e*sinE
}

// Period returns the period of this orbit.
func (o Orbit) Period() time.Duration {
	// The time package does not trivially handle fractions of a second, so
	// compute this in a convoluted way...
	seconds := 2 * math.Pi * math.Sqrt(math.Pow(o.a, 3)/o.Origin.μ)
	duration, _ := time.ParseDuration(fmt.Sprintf("%.6fs", seconds))
	return duration
}

// MeanMotion returns the mean motion n in rad/s.
func (o Orbit) MeanMotion() float64 {
	return math.Sqrt(o.Origin.μ / math.Pow(o.a, 3))
}

// RV returns the position and velocity vectors in the inertial frame.
func (o Orbit) RV() ([]float64, []float64) {
	p := o.SemiParameter()
	// Support special orbits.
	ν := o.ν
	ω := o.ω
	Ω := o.Ω
	if o.e < eccentricityε {
		ω = 0
		if o.i < angleε {
			// Circular equatorial
			Ω = 0
			ν = math.Mod(o.ω+o.Ω+o.ν, 2*math.Pi)
		} else {
			// Circular inclined
			ν = o.ArgLatitudeU()
		}
	} else if o.i < angleε {
		Ω = 0
		ω = o.TildeΩ()
	}

	sinν, cosν := math.Sincos(ν)
	R := []float64{p * cosν / (1 + o.e*cosν), p * sinν / (1 + o.e*cosν), 0}
	V := []float64{-math.Sqrt(o.Origin.μ/p) * sinν, math.Sqrt(o.Origin.μ/p) * (o.e + cosν), 0}
	return PQW2ECI(o.i, ω, Ω, R), PQW2ECI(o.i, ω, Ω, V)
}

// RNorm returns the norm of the radius vector without computing the full vector.
func (o Orbit) RNorm() float64 {
	return o.SemiParameter() / (1 + o.e*math.Cos(o.ν))
}

// VNorm returns the norm of the velocity vector without computing the full vector.
func (o Orbit) VNorm() float64 {
	if floats.EqualWithinAbs(o.e, 0, eccentricityε) {
		return math.Sqrt(o.Origin.μ / o.RNorm())
	}
	return math.Sqrt(2 * (o.Origin.μ/o.RNorm() + o.Energyξ()))
}

// Elements returns the six classical orbital elements.
func (o Orbit) Elements() (a, e, i, Ω, ω, ν float64) {
	return o.a, o.e, o.i, o.Ω, o.ω, o.ν
}

// StateVector returns the state vector of this orbit at the given epoch.
func (o Orbit) StateVector(epoch time.Time) StateVector {
	R, V := o.RV()
	return StateVector{R, V, epoch}
}

// String implements the stringer interface (hence the value receiver).
func (o Orbit) String() string {
	if o.e < eccentricityε {
		return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f u=%.3f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ArgLatitudeU()))
	}
	return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ω), Rad2deg(o.ν))
}

// Equals returns whether two orbits are identical with free true anomaly.
// Use StrictlyEquals to also check true anomaly.
func (o Orbit) Equals(o1 Orbit) (bool, error) {
	if !o.Origin.Equals(o1.Origin) {
		return false, fmt.Errorf("different origin")
	}
	if !floats.EqualWithinAbs(o.a, o1.a, distanceε) {
		return false, fmt.Errorf("semi major axis invalid")
	}
	if !floats.EqualWithinAbs(o.e, o1.e, eccentricityε) {
		return false, fmt.Errorf("eccentricity invalid")
	}
	if !floats.EqualWithinAbs(o.i, o1.i, angleε) {
		return false, fmt.Errorf("inclination invalid")
	}
	if !floats.EqualWithinAbs(o.Ω, o1.Ω, angleε) {
		return false, fmt.Errorf("RAAN invalid")
	}
	if o.e < eccentricityε {
		if !floats.EqualWithinAbs(o.ArgLatitudeU(), o1.ArgLatitudeU(), angleε) {
			return false, fmt.Errorf("argument of latitude invalid")
		}
	} else if !floats.EqualWithinAbs(o.ω, o1.ω, angleε) {
		return false, fmt.Errorf("argument of perigee invalid")
	}
	return true, nil
}

// StrictlyEquals returns whether two orbits are identical.
func (o Orbit) StrictlyEquals(o1 Orbit) (bool, error) {
	if o.e > eccentricityε && !floats.EqualWithinAbs(o.ν, o1.ν, angleε) {
		return false, fmt.Errorf("true anomaly invalid")
	}
	return o.Equals(o1)
}

// NewOrbitFromOE creates an orbit from the provided orbital elements.
// WARNING: Angles must be in degrees not radians.
func NewOrbitFromOE(a, e, i, Ω, ω, ν float64, c CelestialObject) (*Orbit, error) {
	if a <= 0 {
		return nil, fmt.Errorf("semi-major axis %f: %w", a, ErrInvalidOrbit)
	}
	if e < 0 || e >= 1 {
		return nil, fmt.Errorf("eccentricity %f not in [0,1): %w", e, ErrInvalidOrbit)
	}
	// Making an approximation for circular and equatorial orbits.
	if e < eccentricityε {
		e = eccentricityε
	}
	if Deg2rad(i) < angleε {
		i = Rad2deg(angleε)
	}
	return &Orbit{a, e, Deg2rad(i), Deg2rad(Ω), Deg2rad(ω), Deg2rad(ν), c}, nil
}

// NewOrbitFromRV returns orbital elements from the R and V vectors.
// Fails with ErrDegenerateOrbit if the angular momentum is near zero or the
// energy implies a parabolic or unbound trajectory.
func NewOrbitFromRV(R, V []float64, c CelestialObject) (*Orbit, error) {
	// From Vallado's RV2COE, page 113.
	hVec := cross(R, V)
	if norm(hVec) < momentumε {
		return nil, fmt.Errorf("|h|=%e: %w", norm(hVec), ErrDegenerateOrbit)
	}
	n := cross([]float64{0, 0, 1}, hVec)
	v := norm(V)
	r := norm(R)
	ξ := (v*v)/2 - c.μ/r
	if ξ >= 0 {
		return nil, fmt.Errorf("energy ξ=%f >= 0 (unbound): %w", ξ, ErrDegenerateOrbit)
	}
	a := -c.μ / (2 * ξ)
	eVec := make([]float64, 3)
	for i := 0; i < 3; i++ {
		eVec[i] = ((v*v-c.μ/r)*R[i] - dot(R, V)*V[i]) / c.μ
	}
	e := norm(eVec)
	if e >= 1 {
		return nil, fmt.Errorf("e=%f: %w", e, ErrDegenerateOrbit)
	}
	i := math.Acos(hVec[2] / norm(hVec))
	ω := math.Acos(dot(n, eVec) / (norm(n) * e))
	if math.IsNaN(ω) {
		ω = 0
	}
	if eVec[2] < 0 {
		ω = 2*math.Pi - ω
	}
	Ω := math.Acos(n[0] / norm(n))
	if math.IsNaN(Ω) {
		Ω = 0
	}
	if n[1] < 0 {
		Ω = 2*math.Pi - Ω
	}
	cosν := dot(eVec, R) / (e * r)
	if abscosν := math.Abs(cosν); abscosν > 1 && floats.EqualWithinAbs(abscosν, 1, 1e-12) {
		// Rounding errors may push |cosν| infinitesimally above 1, which
		// would turn math.Acos into NaN.
		cosν = sign(cosν)
	}
	ν := math.Acos(cosν)
	if dot(R, V) < 0 {
		ν = 2*math.Pi - ν
	}
	// Fix rounding errors.
	i = math.Mod(i, 2*math.Pi)
	Ω = math.Mod(Ω, 2*math.Pi)
	ω = math.Mod(ω, 2*math.Pi)
	ν = math.Mod(ν, 2*math.Pi)
	return &Orbit{a, e, i, Ω, ω, ν, c}, nil
}

// OrbitFromState converts a state vector to orbital elements about the given body.
func OrbitFromState(s StateVector, body CelestialObject) (*Orbit, error) {
	return NewOrbitFromRV(s.R, s.V, body)
}

// Radii2ae returns the semi major axis and the eccentricity from the radii.
func Radii2ae(rA, rP float64) (a, e float64) {
	if rA < rP {
		panic("periapsis cannot be greater than apoapsis")
	}
	a = (rP + rA) / 2
	e = (rA - rP) / (rA + rP)
	return
}
