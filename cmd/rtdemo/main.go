package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stellarlab/fuelopt"
)

var (
	cfgDir      = flag.String("config", ".", "directory holding the mission TOML file")
	cfgName     = flag.String("name", "mission", "mission file name (without extension)")
	runFor      = flag.Duration("run", 30*time.Second, "how long to run the session")
	fuelDraw    = flag.Float64("draw", 0.5, "simulated fuel draw in kg/s")
	metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address (empty = off)")
)

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))

	req, rtc, err := fuelopt.LoadConfig(*cfgDir, *cfgName)
	if err != nil {
		logger.Log("level", "fatal", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	collector, err := fuelopt.NewSessionCollector(reg)
	if err != nil {
		logger.Log("level", "fatal", "err", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logger.Log("level", "error", "metrics", *metricsAddr, "err", err)
			}
		}()
	}

	planner := fuelopt.NewFuelOptimizer(fuelopt.Bipropellant, logger)
	telemetry := fuelopt.NewSimulatedTelemetry(req.Body, *fuelDraw, 0.01, time.Now().UnixNano())
	session, err := fuelopt.NewSession(req, rtc, planner, telemetry, logger, collector)
	if err != nil {
		logger.Log("level", "fatal", "err", err)
		os.Exit(1)
	}
	session.AddAlertCallback(func(e fuelopt.ConstraintEvent) {
		fmt.Printf("ALERT %s\n", e)
	})

	parking, err := fuelopt.NewOrbitFromOE(req.Body.Radius+req.InitAltitude, 0, 0, 0, 0, 0, req.Body)
	if err != nil {
		logger.Log("level", "fatal", "err", err)
		os.Exit(1)
	}
	initial := fuelopt.VehicleState{
		DryMass:    req.DryMass,
		FuelMass:   req.FuelMass,
		PowerLevel: 1.0,
		State:      parking.StateVector(req.Epoch),
		Stamp:      req.Epoch,
	}
	if err := session.Start(initial); err != nil {
		logger.Log("level", "fatal", "err", err)
		os.Exit(1)
	}

	poll := time.NewTicker(5 * time.Second)
	defer poll.Stop()
	deadline := time.After(*runFor)
	for running := true; running; {
		select {
		case <-poll.C:
			st := session.CurrentStatus()
			fmt.Printf("status %s fuel=%.1f kg power=%.2f events=%d cycles=%d\n",
				st.State, st.Vehicle.FuelMass, st.Vehicle.PowerLevel, st.Stats.EventsEmitted, st.Stats.CyclesRun)
		case <-deadline:
			running = false
		}
	}
	session.Stop()

	st := session.CurrentStatus()
	fmt.Printf("session %s done: %d ticks, %d cycles run, %d skipped, %d events\n",
		st.SessionID, st.Stats.MonitorTicks, st.Stats.CyclesRun, st.Stats.CyclesSkipped, st.Stats.EventsEmitted)
	for _, e := range session.EventHistory(10) {
		fmt.Printf("  %s %s\n", e.Stamp.Format(time.RFC3339), e)
	}
}
