package fuelopt

import (
	"fmt"
	"math"
	"time"
)

// g0 is standard gravity in m/s^2, used in the rocket equation.
const g0 = 9.80665

// FuelForΔv returns the propellant mass in kg needed for the given Δv (km/s)
// via the Tsiolkovsky rocket equation, for a vehicle of initialMass kg.
func FuelForΔv(Δv, isp, initialMass float64) float64 {
	if Δv <= 0 {
		return 0
	}
	return initialMass * (1 - math.Exp(-Δv*1e3/(isp*g0)))
}

// Burn is the outcome of executing a maneuver with a given thruster.
type Burn struct {
	Δv       float64 // km/s
	FuelMass float64 // kg
	Duration time.Duration
	EffIsp   float64 // s, after any power derating
}

func (b Burn) String() string {
	return fmt.Sprintf("Δv=%.4f km/s fuel=%.3f kg burn=%s", b.Δv, b.FuelMass, b.Duration)
}

// EffectiveIsp returns the specific impulse after power derating. Electric
// thrusters running below their rated power deliver proportionally less
// impulse; chemical thrusters are unaffected by the power budget.
func (t Thruster) EffectiveIsp(powerAvail float64) float64 {
	if t.Class != Electric || t.Power == 0 {
		return t.Isp
	}
	// Jet power at full thrust. Half factor from P = F·ve/2.
	thrustPower := t.Thrust * t.Isp * g0 / 2
	derate := 1.0
	if powerAvail < thrustPower {
		derate = powerAvail / thrustPower
	}
	return t.Isp * derate
}

// Consumption computes the burn required to deliver Δv (km/s) on a vehicle of
// totalMass kg with fuelAvail kg of propellant and powerAvail W available.
// Returns ErrInfeasibleBurn if the propellant, power, or burn-duration limits
// cannot cover the maneuver.
func (t Thruster) Consumption(Δv, totalMass, fuelAvail, powerAvail float64) (Burn, error) {
	if t.Class == Advanced {
		return Burn{}, fmt.Errorf("%s: no propellant model: %w", t.Name, ErrInfeasibleBurn)
	}
	isp := t.EffectiveIsp(powerAvail)
	if isp <= 0 {
		return Burn{}, fmt.Errorf("%s: no power for burn: %w", t.Name, ErrInfeasibleBurn)
	}
	fuel := FuelForΔv(Δv, isp, totalMass)
	if fuel > fuelAvail {
		return Burn{}, fmt.Errorf("%s: needs %.3f kg, have %.3f kg: %w", t.Name, fuel, fuelAvail, ErrInfeasibleBurn)
	}
	// Mass flow at the derated Isp.
	mdot := t.Thrust / (isp * g0)
	duration := time.Duration(fuel / mdot * float64(time.Second))
	if t.MaxBurn > 0 && duration > t.MaxBurn {
		return Burn{}, fmt.Errorf("%s: burn of %s exceeds limit %s: %w", t.Name, duration, t.MaxBurn, ErrInfeasibleBurn)
	}
	return Burn{Δv: Δv, FuelMass: fuel, Duration: duration, EffIsp: isp}, nil
}

// SequenceConsumption computes the burns for a sequence of Δv maneuvers
// (km/s), depleting vehicle mass after each burn. Fails on the first burn the
// remaining propellant cannot cover.
func (t Thruster) SequenceConsumption(Δvs []float64, totalMass, fuelAvail, powerAvail float64) ([]Burn, error) {
	burns := make([]Burn, 0, len(Δvs))
	for i, Δv := range Δvs {
		burn, err := t.Consumption(Δv, totalMass, fuelAvail, powerAvail)
		if err != nil {
			return burns, fmt.Errorf("burn #%d: %w", i, err)
		}
		burns = append(burns, burn)
		totalMass -= burn.FuelMass
		fuelAvail -= burn.FuelMass
	}
	return burns, nil
}

// SelectThruster returns the candidate which covers the maneuver with the
// least propellant. Ties within fuelSelectε kg go to the shorter burn.
// Returns ErrInfeasibleBurn if no candidate can execute the maneuver.
func SelectThruster(candidates []Thruster, Δv, totalMass, fuelAvail, powerAvail float64) (Thruster, Burn, error) {
	const fuelSelectε = 1e-6
	var best Thruster
	var bestBurn Burn
	found := false
	for _, t := range candidates {
		burn, err := t.Consumption(Δv, totalMass, fuelAvail, powerAvail)
		if err != nil {
			continue
		}
		if !found || burn.FuelMass < bestBurn.FuelMass-fuelSelectε ||
			(math.Abs(burn.FuelMass-bestBurn.FuelMass) <= fuelSelectε && burn.Duration < bestBurn.Duration) {
			best, bestBurn, found = t, burn, true
		}
	}
	if !found {
		return Thruster{}, Burn{}, fmt.Errorf("no candidate among %d thrusters can deliver %.4f km/s: %w", len(candidates), Δv, ErrInfeasibleBurn)
	}
	return best, bestBurn, nil
}
