package fuelopt

import "math"

// Perturbations defines how to handle perturbations during the propagation.
type Perturbations struct {
	Jn uint8 // Zonal harmonics to be used (only up to 3 supported)
}

func (p Perturbations) isEmpty() bool {
	return p.Jn <= 1
}

// SecularJ2Rates returns the secular drift rates of the RAAN and of the
// argument of perigee (rad/s) caused by the J2 zonal harmonic.
// cf. Vallado, 4th ed., p. 649.
func (p Perturbations) SecularJ2Rates(o Orbit) (ΩDot, ωDot float64) {
	if p.Jn < 2 {
		return 0, 0
	}
	n := o.MeanMotion()
	J2 := o.Origin.J(2)
	cosi := math.Cos(o.i)
	rp2 := math.Pow(o.Origin.Radius/o.SemiParameter(), 2)
	ΩDot = -1.5 * n * J2 * rp2 * cosi
	ωDot = 0.75 * n * J2 * rp2 * (5*cosi*cosi - 1)
	return
}

// Accel returns the perturbing acceleration on the provided Cartesian
// position, in km/s^2.
func (p Perturbations) Accel(R []float64, body CelestialObject) []float64 {
	pert := make([]float64, 3)
	if p.isEmpty() {
		return pert
	}
	x, y, z := R[0], R[1], R[2]
	z2 := z * z
	z3 := z2 * z
	r2 := x*x + y*y + z2
	r252 := math.Pow(r2, 5/2.)
	r272 := math.Pow(r2, 7/2.)
	accJ2 := (3 / 2.) * body.J(2) * math.Pow(body.Radius, 2) * body.μ
	pert[0] += accJ2 * (5*x*z2/r272 - x/r252)
	pert[1] += accJ2 * (5*y*z2/r272 - y/r252)
	pert[2] += accJ2 * (5*z3/r272 - 3*z/r252)
	if p.Jn >= 3 {
		r292 := math.Pow(r2, 9/2.)
		z4 := z2 * z2
		accJ3 := body.J(3) * math.Pow(body.Radius, 3) * body.μ
		pert[0] += (5 / 2.) * accJ3 * (7*x*z3/r292 - 3*x*z/r272)
		pert[1] += (5 / 2.) * accJ3 * (7*y*z3/r292 - 3*y*z/r272)
		pert[2] += 0.5 * accJ3 * (35*z4/r292 - 30*z2/r272 + 3/r252)
	}
	return pert
}
