package fuelopt

import (
	"fmt"
	"math"
	"sort"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"
)

// MissionRequirements describes one transfer problem between circular
// orbits. Immutable input to an optimization run.
type MissionRequirements struct {
	InitAltitude   float64 // km above the body surface
	TargetAltitude float64 // km above the body surface
	DryMass        float64 // kg
	FuelMass       float64 // kg loaded at departure
	MaxTime        time.Duration
	MaxFuel        float64 // kg, hard constraint (0 = fuel load is the cap)
	MaxMass        float64 // kg wet, hard constraint (0 = unconstrained)
	MaxPower       float64 // W available to the propulsion system
	Priority       Priority
	Epoch          time.Time
	Body           CelestialObject
}

// Validate reports the first invalid field of the requirements.
func (req MissionRequirements) Validate() error {
	if req.InitAltitude <= 0 || req.TargetAltitude <= 0 {
		return fmt.Errorf("altitudes must be positive: %w", ErrInvalidOrbit)
	}
	if req.DryMass <= 0 {
		return fmt.Errorf("dry mass must be positive, got %.3f kg", req.DryMass)
	}
	if req.FuelMass < 0 {
		return fmt.Errorf("fuel mass must be non-negative, got %.3f kg", req.FuelMass)
	}
	if req.Priority == 0 {
		return fmt.Errorf("optimization priority not set")
	}
	return nil
}

// hard returns the hard-constraint filter implied by the requirements.
func (req MissionRequirements) hard() HardConstraints {
	maxFuel := req.MaxFuel
	if maxFuel == 0 || maxFuel > req.FuelMass {
		maxFuel = req.FuelMass
	}
	return HardConstraints{MaxTime: req.MaxTime, MaxFuel: maxFuel, MaxMass: req.MaxMass}
}

// EfficiencyReport relates a plan to its theoretical minimum.
type EfficiencyReport struct {
	ΔvEfficiency  float64 // Hohmann Δv over realized Δv, ≤ 1 is typical
	FuelPerΔv     float64 // kg per km/s
	IspEfficiency float64 // derated Isp over rated Isp
}

// Result is one completed (or failed) mission optimization.
type Result struct {
	ID         uuid.UUID
	Strategy   string // hohmann | multi-impulse | continuous
	Plan       *Plan
	Thruster   Thruster
	Efficiency EfficiencyReport
	Elapsed    time.Duration
	CreatedAt  time.Time
}

// Failed reports whether the optimization produced no usable plan.
func (r *Result) Failed() bool {
	return r.Plan == nil || r.Plan.Status == StatusFailed
}

// FuelOptimizer solves batch mission optimization requests.
type FuelOptimizer struct {
	Thruster Thruster
	Seed     int64
	logger   kitlog.Logger
}

// NewFuelOptimizer returns a batch optimizer using the given thruster.
func NewFuelOptimizer(thruster Thruster, logger kitlog.Logger) *FuelOptimizer {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &FuelOptimizer{Thruster: thruster, Seed: 1, logger: kitlog.With(logger, "subsys", "optimizer")}
}

// OptimizeMission selects a trajectory strategy for the requirements, runs
// the search, and reports the plan with its efficiency analysis. When no
// candidate passes the hard constraints, the returned Result carries a failed
// plan alongside an ErrUnreachableTarget-wrapped error.
func (fo *FuelOptimizer) OptimizeMission(req MissionRequirements) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Result{ID: uuid.New(), Thruster: fo.Thruster, CreatedAt: start}
	traj := NewTrajectoryOptimizer(req.Body, fo.Thruster, fo.logger, fo.Seed)
	hard := req.hard()

	var plan *Plan
	var err error
	if fo.Thruster.Class == Electric {
		res.Strategy = "continuous"
		plan, err = traj.ContinuousThrustPlan(req.InitAltitude, req.TargetAltitude, req.Epoch, req.DryMass, req.FuelMass, req.MaxPower, hard, req.Priority)
	} else {
		res.Strategy = "hohmann"
		plan, err = traj.HohmannPlan(req.InitAltitude, req.TargetAltitude, req.Epoch, req.DryMass, req.FuelMass, req.MaxPower, hard)
		if req.Priority == PriorityFuel {
			// A bi-elliptic detour can beat Hohmann for large radius
			// ratios; let the search decide.
			if multi, mErr := traj.MultiImpulsePlan(req.InitAltitude, req.TargetAltitude, 3, req.Epoch, req.DryMass, req.FuelMass, req.MaxPower, hard, req.Priority); mErr == nil {
				if err != nil || multi.FuelMass < plan.FuelMass {
					plan, err = multi, nil
					res.Strategy = "multi-impulse"
				}
			}
		} else if err != nil {
			// Impulsive two-burn rejected: try spreading the transfer
			// across more burns before giving up.
			if multi, mErr := traj.MultiImpulsePlan(req.InitAltitude, req.TargetAltitude, 3, req.Epoch, req.DryMass, req.FuelMass, req.MaxPower, hard, req.Priority); mErr == nil {
				plan, err = multi, nil
				res.Strategy = "multi-impulse"
			}
		}
	}
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Plan = &Plan{Status: StatusFailed, Thruster: fo.Thruster}
		fo.logger.Log("level", "error", "mission", res.ID, "strategy", res.Strategy, "err", err)
		return res, err
	}
	res.Plan = plan
	res.Efficiency = fo.efficiency(req, plan)
	fo.logger.Log("level", "info", "mission", res.ID, "strategy", res.Strategy, "Δv", fmt.Sprintf("%.4f", plan.TotalΔv), "fuel", fmt.Sprintf("%.3f", plan.FuelMass), "elapsed", res.Elapsed)
	return res, nil
}

// efficiency relates the plan to the Hohmann theoretical minimum.
func (fo *FuelOptimizer) efficiency(req MissionRequirements, plan *Plan) EfficiencyReport {
	rep := EfficiencyReport{}
	r1 := req.Body.Radius + req.InitAltitude
	r2 := req.Body.Radius + req.TargetAltitude
	if hoh, err := Hohmann(r1, r2, req.Body); err == nil && plan.TotalΔv > 0 {
		rep.ΔvEfficiency = hoh.TotalΔv() / plan.TotalΔv
	}
	if plan.TotalΔv > 0 {
		rep.FuelPerΔv = plan.FuelMass / plan.TotalΔv
	}
	if fo.Thruster.Isp > 0 {
		rep.IspEfficiency = fo.Thruster.EffectiveIsp(req.MaxPower) / fo.Thruster.Isp
	}
	return rep
}

// ConstellationConfig shapes a multi-satellite deployment into one shell.
type ConstellationConfig struct {
	Satellites int
	// SlotSpacing in degrees of argument of latitude between adjacent
	// slots. Zero means even spacing (360/N).
	SlotSpacing float64
}

// Deployment is one satellite's assignment within a constellation shell.
type Deployment struct {
	Slot        int
	SlotAngle   float64 // deg argument of latitude in the shell
	DeployEpoch time.Time
	Result      *Result
}

// OptimizeConstellationDeployment plans N phased deployments into the target
// shell. Slots are evenly spaced and deployment epochs are staggered by the
// shell period over N, so no two satellites inject into the same slot or at
// the same epoch.
func (fo *FuelOptimizer) OptimizeConstellationDeployment(cfg ConstellationConfig, req MissionRequirements) ([]Deployment, error) {
	if cfg.Satellites < 1 {
		return nil, fmt.Errorf("constellation needs at least one satellite, got %d", cfg.Satellites)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	spacing := cfg.SlotSpacing
	if spacing == 0 {
		spacing = 360.0 / float64(cfg.Satellites)
	}
	shell, err := NewOrbitFromOE(req.Body.Radius+req.TargetAltitude, 0, 0, 0, 0, 0, req.Body)
	if err != nil {
		return nil, err
	}
	stagger := shell.Period() / time.Duration(cfg.Satellites)

	deployments := make([]Deployment, cfg.Satellites)
	for i := 0; i < cfg.Satellites; i++ {
		satReq := req
		satReq.Epoch = req.Epoch.Add(time.Duration(i) * stagger)
		res, err := fo.OptimizeMission(satReq)
		if err != nil {
			return deployments[:i], fmt.Errorf("satellite %d of %d: %w", i+1, cfg.Satellites, err)
		}
		deployments[i] = Deployment{
			Slot:        i,
			SlotAngle:   math.Mod(float64(i)*spacing, 360),
			DeployEpoch: satReq.Epoch,
			Result:      res,
		}
	}
	fo.logger.Log("level", "info", "constellation", cfg.Satellites, "spacing", fmt.Sprintf("%.2f", spacing), "stagger", stagger)
	return deployments, nil
}

// ThrusterComparison is one row of a propulsion trade study.
type ThrusterComparison struct {
	Thruster Thruster
	Result   *Result
	Feasible bool
	Err      error
}

// CompareThrusters runs the mission once per candidate thruster and returns
// the rows ranked by realized fuel consumption, ties broken by transfer time,
// preserving catalog order beyond that. Infeasible candidates sort last.
func (fo *FuelOptimizer) CompareThrusters(req MissionRequirements, candidates []Thruster) []ThrusterComparison {
	rows := make([]ThrusterComparison, 0, len(candidates))
	for _, t := range candidates {
		sub := NewFuelOptimizer(t, fo.logger)
		sub.Seed = fo.Seed
		res, err := sub.OptimizeMission(req)
		rows = append(rows, ThrusterComparison{Thruster: t, Result: res, Feasible: err == nil, Err: err})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Feasible != b.Feasible {
			return a.Feasible
		}
		if !a.Feasible {
			return false
		}
		if a.Result.Plan.FuelMass != b.Result.Plan.FuelMass {
			return a.Result.Plan.FuelMass < b.Result.Plan.FuelMass
		}
		return a.Result.Plan.TransferTime < b.Result.Plan.TransferTime
	})
	return rows
}
