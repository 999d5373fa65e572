package fuelopt

import "time"

// ThrusterClass defines the family of a propulsion system.
type ThrusterClass uint8

const (
	// Chemical covers mono- and bipropellant systems.
	Chemical ThrusterClass = iota + 1
	// Electric covers ion and Hall-effect systems.
	Electric
	// Advanced covers exotic systems (solar sails, nuclear). No fuel model.
	Advanced
)

func (c ThrusterClass) String() string {
	switch c {
	case Chemical:
		return "chemical"
	case Electric:
		return "electric"
	case Advanced:
		return "advanced"
	}
	panic("cannot stringify unknown thruster class")
}

// Thruster defines a propulsion system. Immutable once a mission is defined.
type Thruster struct {
	Name       string
	Class      ThrusterClass
	Thrust     float64 // N
	Isp        float64 // s
	Power      float64 // W, drawn while burning (electric classes only)
	Efficiency float64 // dimensionless, in (0, 1]
	MaxBurn    time.Duration
}

/* Stock thrusters */

// Monopropellant is a hydrazine monopropellant system.
var Monopropellant = Thruster{"MR-106 hydrazine", Chemical, 22.0, 230.0, 0, 0.95, time.Hour}

// Bipropellant is an N2O4/MMH bipropellant system.
var Bipropellant = Thruster{"R-4D N2O4/MMH", Chemical, 490.0, 310.0, 0, 0.98, time.Hour}

// IonXIPS25 is the XIPS-25 ion thruster.
var IonXIPS25 = Thruster{"XIPS-25 ion", Electric, 0.165, 3500.0, 4500.0, 0.65, 0}

// HallBPT4000 is the BPT-4000 Hall-effect thruster.
var HallBPT4000 = Thruster{"BPT-4000 Hall", Electric, 0.83, 1600.0, 1350.0, 0.55, 0}

// StockThrusters returns the catalog of available thrusters.
func StockThrusters() []Thruster {
	return []Thruster{Monopropellant, Bipropellant, IonXIPS25, HallBPT4000}
}
