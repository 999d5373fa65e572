package fuelopt

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/soniakeys/meeus/julian"
)

// JulianDate returns the Julian date of t.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// ExportPlanCSV writes the burn schedule of a plan to w. Columns: burn index,
// epoch (RFC3339 and Julian date), Δv km/s, burn duration seconds, fuel kg.
func ExportPlanCSV(w io.Writer, plan *Plan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"burn", "epoch", "jd", "dv_kms", "burn_s", "fuel_kg"}); err != nil {
		return err
	}
	// Per-burn fuel from re-running the depletion over the schedule.
	mass := plan.FinalMass + plan.FuelMass
	for i, m := range plan.Maneuvers {
		fuel := FuelForΔv(m.Magnitude(), plan.Thruster.Isp, mass)
		mass -= fuel
		rec := []string{
			fmt.Sprintf("%d", i),
			m.Epoch.Format(time.RFC3339),
			fmt.Sprintf("%.6f", JulianDate(m.Epoch)),
			fmt.Sprintf("%.6f", m.Magnitude()),
			fmt.Sprintf("%.1f", m.Duration.Seconds()),
			fmt.Sprintf("%.3f", fuel),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
