package fuelopt

// CelestialObject defines the central body of an orbit.
type CelestialObject struct {
	Name   string
	Radius float64 // km
	μ      float64 // km^3/s^2
	SOI    float64 // km, with respect to the Sun
	J2     float64
	J3     float64
}

// GM returns μ (which is unexported because it's a lowercase letter).
func (c CelestialObject) GM() float64 {
	return c.μ
}

// J returns the perturbing J_n factor for the provided n.
// Only J2 and J3 are supported.
func (c CelestialObject) J(n uint8) float64 {
	switch n {
	case 2:
		return c.J2
	case 3:
		return c.J3
	default:
		return 0.0
	}
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.μ == b.μ && c.J2 == b.J2
}

// Earth is the planet Earth. Values from Vallado.
var Earth = CelestialObject{"Earth", 6378.1363, 3.986004415e5, 924645.0, 1.082626925638815e-3, -2.532307818191774e-6}

// Mars is the planet Mars. Kept for transfer sanity checks beyond Earth orbit.
var Mars = CelestialObject{"Mars", 3397.2, 4.305e4, 576000, 1.96045e-3, 3.1450e-5}
