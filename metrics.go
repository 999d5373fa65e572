package fuelopt

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionCollector bundles the Prometheus metrics a real-time session
// reports: loop activity, constraint events, and optimization timing.
type SessionCollector struct {
	MonitorTicks      prometheus.Counter
	OptimizationRuns  prometheus.Counter
	SkippedCycles     prometheus.Counter
	ConstraintEvents  *prometheus.CounterVec
	OptimizeDurations prometheus.Histogram
	FuelMass          prometheus.Gauge
	PowerLevel        prometheus.Gauge
}

// NewSessionCollector registers the session metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSessionCollector(reg prometheus.Registerer) (*SessionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fuelopt_monitor_ticks_total",
		Help: "Total monitor loop ticks across the session.",
	}), "fuelopt_monitor_ticks_total")
	if err != nil {
		return nil, err
	}
	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fuelopt_optimization_runs_total",
		Help: "Total optimization cycles actually executed.",
	}), "fuelopt_optimization_runs_total")
	if err != nil {
		return nil, err
	}
	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fuelopt_skipped_cycles_total",
		Help: "Optimization cycles skipped because a previous cycle was still in flight.",
	}), "fuelopt_skipped_cycles_total")
	if err != nil {
		return nil, err
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuelopt_constraint_events_total",
		Help: "Constraint events emitted, labeled by class and severity.",
	}, []string{"class", "severity"})
	events, err = registerCounterVec(reg, events, "fuelopt_constraint_events_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fuelopt_optimization_duration_seconds",
		Help:    "Wall time of one optimization cycle in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "fuelopt_optimization_duration_seconds")
	if err != nil {
		return nil, err
	}

	fuel, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fuelopt_fuel_mass_kg",
		Help: "Current fuel mass of the monitored vehicle in kg.",
	}), "fuelopt_fuel_mass_kg")
	if err != nil {
		return nil, err
	}
	power, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fuelopt_power_level",
		Help: "Current power level of the monitored vehicle as a fraction of nominal.",
	}), "fuelopt_power_level")
	if err != nil {
		return nil, err
	}

	return &SessionCollector{
		MonitorTicks:      ticks,
		OptimizationRuns:  runs,
		SkippedCycles:     skipped,
		ConstraintEvents:  events,
		OptimizeDurations: durations,
		FuelMass:          fuel,
		PowerLevel:        power,
	}, nil
}

// recordTick updates the per-tick vehicle gauges.
func (c *SessionCollector) recordTick(v VehicleState) {
	if c == nil {
		return
	}
	if c.MonitorTicks != nil {
		c.MonitorTicks.Inc()
	}
	if c.FuelMass != nil {
		c.FuelMass.Set(v.FuelMass)
	}
	if c.PowerLevel != nil {
		c.PowerLevel.Set(v.PowerLevel)
	}
}

// recordEvent counts one constraint event.
func (c *SessionCollector) recordEvent(e ConstraintEvent) {
	if c == nil || c.ConstraintEvents == nil {
		return
	}
	c.ConstraintEvents.WithLabelValues(e.Class.String(), e.Severity.String()).Inc()
}

func registerCounter(reg prometheus.Registerer, ctr prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(ctr); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return ctr, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
