package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/stellarlab/fuelopt"
)

var (
	cfgDir   = flag.String("config", ".", "directory holding the mission TOML file")
	cfgName  = flag.String("name", "mission", "mission file name (without extension)")
	thruster = flag.String("thruster", "R-4D N2O4/MMH", "thruster to plan with (see -list)")
	compare  = flag.Bool("compare", false, "rank all stock thrusters for this mission")
	csvPath  = flag.String("csv", "", "write the burn schedule to this CSV file")
	list     = flag.Bool("list", false, "list stock thrusters and exit")
)

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))

	if *list {
		for _, t := range fuelopt.StockThrusters() {
			fmt.Printf("%-20s %-9s thrust=%8.3f N isp=%6.0f s power=%6.0f W\n", t.Name, t.Class, t.Thrust, t.Isp, t.Power)
		}
		return
	}

	req, _, err := fuelopt.LoadConfig(*cfgDir, *cfgName)
	if err != nil {
		logger.Log("level", "fatal", "err", err)
		os.Exit(1)
	}

	if *compare {
		fo := fuelopt.NewFuelOptimizer(fuelopt.Bipropellant, logger)
		rows := fo.CompareThrusters(req, fuelopt.StockThrusters())
		fmt.Printf("%-20s %-9s %10s %10s %12s\n", "thruster", "feasible", "fuel (kg)", "Δv (km/s)", "transfer")
		for _, row := range rows {
			if !row.Feasible {
				fmt.Printf("%-20s %-9t %s\n", row.Thruster.Name, false, row.Err)
				continue
			}
			p := row.Result.Plan
			fmt.Printf("%-20s %-9t %10.3f %10.4f %12s\n", row.Thruster.Name, true, p.FuelMass, p.TotalΔv, p.TransferTime.Round(time.Minute))
		}
		return
	}

	var chosen fuelopt.Thruster
	for _, t := range fuelopt.StockThrusters() {
		if t.Name == *thruster {
			chosen = t
			break
		}
	}
	if chosen.Name == "" {
		logger.Log("level", "fatal", "err", fmt.Sprintf("unknown thruster %q, try -list", *thruster))
		os.Exit(1)
	}

	fo := fuelopt.NewFuelOptimizer(chosen, logger)
	start := time.Now()
	res, err := fo.OptimizeMission(req)
	if err != nil {
		logger.Log("level", "fatal", "err", err)
		os.Exit(1)
	}
	plan := res.Plan
	fmt.Printf("mission %s via %s (%s)\n", res.ID, res.Strategy, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Δv %.4f km/s, fuel %.3f kg, transfer %s\n", plan.TotalΔv, plan.FuelMass, plan.TransferTime.Round(time.Second))
	fmt.Printf("  Δv efficiency %.3f, fuel/Δv %.2f kg per km/s\n", res.Efficiency.ΔvEfficiency, res.Efficiency.FuelPerΔv)
	for i, m := range plan.Maneuvers {
		fmt.Printf("  burn %d: %s\n", i, m)
	}

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			logger.Log("level", "fatal", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := fuelopt.ExportPlanCSV(f, plan); err != nil {
			logger.Log("level", "fatal", "err", err)
			os.Exit(1)
		}
		logger.Log("level", "info", "csv", *csvPath, "burns", len(plan.Maneuvers))
	}
}
