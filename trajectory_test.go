package fuelopt

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/gonum/floats"
)

func TestScorePriorities(t *testing.T) {
	opt := NewTrajectoryOptimizer(Earth, Bipropellant, nil, 42)
	lean := candidate{fuelMass: 10, transferTime: time.Hour}
	heavy := candidate{fuelMass: 600, transferTime: 90 * time.Hour}
	const dry = 100.0

	// The mass objective is the wet mass each candidate needs, so candidates
	// with different fuel totals must separate.
	sLean := opt.score(lean, PriorityMass, lean.fuelMass, lean.transferTime, dry)
	sHeavy := opt.score(heavy, PriorityMass, lean.fuelMass, lean.transferTime, dry)
	if sLean == sHeavy {
		t.Fatalf("mass objective did not separate the candidates: both %f", sLean)
	}
	if !floats.EqualWithinAbs(sLean, dry+10, 1e-9) {
		t.Fatalf("lean wet mass %f", sLean)
	}
	if sHeavy <= sLean {
		t.Fatalf("heavier candidate scored %f, lean %f", sHeavy, sLean)
	}

	// Balanced inherits the separation through its mass term.
	bLean := opt.score(lean, PriorityBalanced, lean.fuelMass, lean.transferTime, dry)
	bHeavy := opt.score(heavy, PriorityBalanced, lean.fuelMass, lean.transferTime, dry)
	if bHeavy <= bLean {
		t.Fatalf("balanced objective did not penalize the heavier candidate: %f vs %f", bHeavy, bLean)
	}
}

// statusRecorder collects the "status" values a search logs, in order.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []SearchStatus
}

func (r *statusRecorder) Log(kv ...interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == "status" {
			if st, ok := kv[i+1].(SearchStatus); ok {
				r.statuses = append(r.statuses, st)
			}
		}
	}
	return nil
}

func TestSearchLifecycle(t *testing.T) {
	rec := &statusRecorder{}
	opt := NewTrajectoryOptimizer(Earth, Bipropellant, rec, 42)
	if _, err := opt.MultiImpulsePlan(300, 35786, 3, time.Now(), 100, 700, 0, HardConstraints{}, PriorityBalanced); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []SearchStatus{StatusReceived, StatusFormulating, StatusSearching, StatusConverged}
	rec.mu.Lock()
	got := append([]SearchStatus{}, rec.statuses...)
	rec.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("logged statuses %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("status %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestHohmannPlan(t *testing.T) {
	opt := NewTrajectoryOptimizer(Earth, Bipropellant, nil, 42)
	epoch := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	plan, err := opt.HohmannPlan(300, 35786, epoch, 100, 700, 0, HardConstraints{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Status != StatusConverged || plan.Partial {
		t.Fatalf("status %s partial=%t", plan.Status, plan.Partial)
	}
	if len(plan.Maneuvers) != 2 {
		t.Fatalf("expected 2 burns, got %d", len(plan.Maneuvers))
	}
	if !floats.EqualWithinAbs(plan.TotalΔv, 3.8924, 1e-3) {
		t.Fatalf("Δv=%f", plan.TotalΔv)
	}
	// Both burns prograde for a raising transfer.
	for _, m := range plan.Maneuvers {
		if m.Δv[0] <= 0 {
			t.Fatalf("expected prograde burn, got %v", m.Δv)
		}
	}
	// Second burn scheduled half a transfer ellipse later.
	gap := plan.Maneuvers[1].Epoch.Sub(plan.Maneuvers[0].Epoch)
	if math.Abs(gap.Seconds()-plan.TransferTime.Seconds()) > 1 {
		t.Fatalf("burn gap %s vs transfer %s", gap, plan.TransferTime)
	}
	// Fuel totals telescope through the rocket equation.
	if !floats.EqualWithinAbs(plan.FuelMass, FuelForΔv(plan.TotalΔv, Bipropellant.Isp, 800), 1e-6) {
		t.Fatalf("fuel=%f", plan.FuelMass)
	}
	if !floats.EqualWithinAbs(plan.FinalMass, 800-plan.FuelMass, 1e-9) {
		t.Fatalf("final mass %f", plan.FinalMass)
	}
}

func TestHohmannPlanConstraints(t *testing.T) {
	opt := NewTrajectoryOptimizer(Earth, Bipropellant, nil, 42)
	_, err := opt.HohmannPlan(300, 35786, time.Now(), 100, 700, 0, HardConstraints{MaxFuel: 1})
	if !errors.Is(err, ErrUnreachableTarget) {
		t.Fatalf("expected ErrUnreachableTarget, got %v", err)
	}
	_, err = opt.HohmannPlan(300, 35786, time.Now(), 100, 700, 0, HardConstraints{MaxTime: time.Hour})
	if !errors.Is(err, ErrUnreachableTarget) {
		t.Fatalf("expected ErrUnreachableTarget, got %v", err)
	}
}

// For a radius ratio above ~15.6 a bi-elliptic detour beats Hohmann, and the
// genetic search should find it.
func TestMultiImpulsePlanBiElliptic(t *testing.T) {
	opt := NewTrajectoryOptimizer(Earth, Bipropellant, nil, 42)
	initAlt := 7000 - Earth.Radius
	targetAlt := 140000 - Earth.Radius
	hoh, err := opt.evalApsisSequence([]float64{7000, 140000}, 50, 500, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan, err := opt.MultiImpulsePlan(initAlt, targetAlt, 3, time.Now(), 50, 500, 0, HardConstraints{}, PriorityFuel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Maneuvers) != 3 {
		t.Fatalf("expected 3 burns, got %d", len(plan.Maneuvers))
	}
	if plan.TotalΔv >= hoh.totalΔv {
		t.Fatalf("search Δv %f did not improve on the two-burn %f", plan.TotalΔv, hoh.totalΔv)
	}
	if plan.Generations == 0 {
		t.Fatal("no generations recorded")
	}
}

func TestMultiImpulsePlanValidation(t *testing.T) {
	opt := NewTrajectoryOptimizer(Earth, Bipropellant, nil, 42)
	if _, err := opt.MultiImpulsePlan(300, 35786, 2, time.Now(), 100, 700, 0, HardConstraints{}, PriorityFuel); err == nil {
		t.Fatal("expected an error for a two-burn multi-impulse request")
	}
	_, err := opt.MultiImpulsePlan(300, 35786, 3, time.Now(), 100, 700, 0, HardConstraints{MaxFuel: 1}, PriorityFuel)
	if !errors.Is(err, ErrUnreachableTarget) {
		t.Fatalf("expected ErrUnreachableTarget, got %v", err)
	}
}

func TestContinuousThrustPlan(t *testing.T) {
	opt := NewTrajectoryOptimizer(Earth, IonXIPS25, nil, 42)
	opt.Step = 5 * time.Minute
	plan, err := opt.ContinuousThrustPlan(300, 35786, time.Now(), 500, 100, 4500, HardConstraints{}, PriorityBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Edelbaum circular-to-circular Δv.
	exp := math.Abs(math.Sqrt(Earth.μ/6678.0) - math.Sqrt(Earth.μ/42164.0))
	if !floats.EqualWithinAbs(plan.TotalΔv, exp, 1e-6) {
		t.Fatalf("spiral Δv=%f expected %f", plan.TotalΔv, exp)
	}
	// High Isp: far less propellant than any chemical plan.
	if chem := FuelForΔv(3.8924, Bipropellant.Isp, 600); plan.FuelMass >= chem {
		t.Fatalf("electric fuel %f not below chemical %f", plan.FuelMass, chem)
	}
	if plan.TransferTime < 30*24*time.Hour {
		t.Fatalf("low-thrust spiral finished implausibly fast: %s", plan.TransferTime)
	}
}

func TestContinuousThrustInfeasible(t *testing.T) {
	opt := NewTrajectoryOptimizer(Earth, IonXIPS25, nil, 42)
	_, err := opt.ContinuousThrustPlan(300, 35786, time.Now(), 500, 1, 4500, HardConstraints{}, PriorityBalanced)
	if !errors.Is(err, ErrInfeasibleBurn) {
		t.Fatalf("expected ErrInfeasibleBurn, got %v", err)
	}
}

func TestGeneticEngine(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bounds := [][2]float64{{-10, 10}, {-10, 10}}
	sphere := func(g []float64) (float64, bool) {
		return g[0]*g[0] + g[1]*g[1], true
	}
	res := runGA(defaultGAConfig(), bounds, sphere, rng)
	if !res.found {
		t.Fatal("no candidate found on an unconstrained problem")
	}
	if !res.converged {
		t.Fatal("sphere function must converge before the generation cap")
	}
	if res.cost > 0.5 {
		t.Fatalf("cost %f too far from the optimum", res.cost)
	}

	// Cap hit without stagnation: found but not converged.
	cfg := defaultGAConfig()
	cfg.maxGen = 3
	cfg.stagnation = 100
	res = runGA(cfg, bounds, sphere, rng)
	if !res.found || res.converged {
		t.Fatalf("expected a partial search, found=%t converged=%t", res.found, res.converged)
	}
	if res.generations != 3 {
		t.Fatalf("generations=%d", res.generations)
	}

	// Fully infeasible landscape.
	res = runGA(defaultGAConfig(), bounds, func(g []float64) (float64, bool) {
		return 0, false
	}, rng)
	if res.found {
		t.Fatal("found a candidate on an infeasible landscape")
	}
}

func TestGradientEngine(t *testing.T) {
	bounds := [][2]float64{{-5, 5}, {-5, 5}}
	bowl := func(x []float64) float64 {
		return (x[0]-1)*(x[0]-1) + (x[1]+2)*(x[1]+2)
	}
	res, err := descend(defaultGradConfig(), []float64{4, 4}, bounds, bowl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !floats.EqualWithinAbs(res.x[0], 1, 1e-2) || !floats.EqualWithinAbs(res.x[1], -2, 1e-2) {
		t.Fatalf("minimum at %v", res.x)
	}

	// A constant-slope cost never decreases its gradient norm: stagnation.
	_, err = descend(defaultGradConfig(), []float64{0}, [][2]float64{{0, 1e9}}, func(x []float64) float64 {
		return -x[0]
	})
	if !errors.Is(err, ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution on stagnation, got %v", err)
	}
}
