package fuelopt

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func testRequirements() MissionRequirements {
	return MissionRequirements{
		InitAltitude:   300,
		TargetAltitude: 35786,
		DryMass:        100,
		FuelMass:       700,
		MaxPower:       4500,
		Priority:       PriorityBalanced,
		Epoch:          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Body:           Earth,
	}
}

func TestOptimizeMissionChemical(t *testing.T) {
	fo := NewFuelOptimizer(Bipropellant, nil)
	res, err := fo.OptimizeMission(testRequirements())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected failure: %s", res.Plan.Status)
	}
	if res.Strategy != "hohmann" {
		t.Fatalf("strategy %s", res.Strategy)
	}
	if res.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("result has no identity")
	}
	if res.Efficiency.ΔvEfficiency < 0.99 {
		t.Fatalf("Hohmann plan should sit at the theoretical minimum, efficiency %f", res.Efficiency.ΔvEfficiency)
	}
	if res.Efficiency.FuelPerΔv <= 0 {
		t.Fatalf("fuel per Δv %f", res.Efficiency.FuelPerΔv)
	}
}

func TestOptimizeMissionElectric(t *testing.T) {
	fo := NewFuelOptimizer(IonXIPS25, nil)
	res, err := fo.OptimizeMission(testRequirements())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != "continuous" {
		t.Fatalf("strategy %s", res.Strategy)
	}
	if res.Plan.FuelMass > 150 {
		t.Fatalf("electric transfer burned %f kg", res.Plan.FuelMass)
	}
}

func TestOptimizeMissionUnreachable(t *testing.T) {
	req := testRequirements()
	req.MaxFuel = 1
	fo := NewFuelOptimizer(Bipropellant, nil)
	res, err := fo.OptimizeMission(req)
	if !errors.Is(err, ErrUnreachableTarget) {
		t.Fatalf("expected ErrUnreachableTarget, got %v", err)
	}
	if res == nil || !res.Failed() {
		t.Fatal("failure must still surface as a failed result")
	}
}

func TestOptimizeMissionValidation(t *testing.T) {
	req := testRequirements()
	req.DryMass = 0
	if _, err := NewFuelOptimizer(Bipropellant, nil).OptimizeMission(req); err == nil {
		t.Fatal("expected a validation error")
	}
}

// Fuzzing the requirement space: every successful result must satisfy the
// hard constraints it was built under.
func TestOptimizeMissionConstraintsHold(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	fo := NewFuelOptimizer(Bipropellant, nil)
	checked := 0
	for c := 0; c < 40; c++ {
		req := MissionRequirements{
			InitAltitude:   200 + rng.Float64()*1000,
			TargetAltitude: 200 + rng.Float64()*40000,
			DryMass:        50 + rng.Float64()*200,
			FuelMass:       100 + rng.Float64()*900,
			MaxPower:       4500,
			Priority:       PriorityBalanced,
			Epoch:          time.Now(),
			Body:           Earth,
		}
		if rng.Intn(2) == 0 {
			req.MaxTime = time.Duration(1+rng.Intn(48)) * time.Hour
		}
		if rng.Intn(2) == 0 {
			req.MaxFuel = 50 + rng.Float64()*500
		}
		res, err := fo.OptimizeMission(req)
		if err != nil {
			continue // infeasible draws are expected
		}
		checked++
		hard := req.hard()
		if hard.MaxTime > 0 && res.Plan.TransferTime > hard.MaxTime {
			t.Fatalf("case %d: transfer %s exceeds max %s", c, res.Plan.TransferTime, hard.MaxTime)
		}
		if res.Plan.FuelMass > hard.MaxFuel+1e-9 {
			t.Fatalf("case %d: fuel %f exceeds cap %f", c, res.Plan.FuelMass, hard.MaxFuel)
		}
		if hard.MaxMass > 0 && req.DryMass+req.FuelMass > hard.MaxMass {
			t.Fatalf("case %d: wet mass violates cap", c)
		}
	}
	if checked == 0 {
		t.Fatal("fuzz produced no feasible missions to check")
	}
}

func TestConstellationDeployment(t *testing.T) {
	fo := NewFuelOptimizer(Bipropellant, nil)
	req := testRequirements()
	deps, err := fo.OptimizeConstellationDeployment(ConstellationConfig{Satellites: 12}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps) != 12 {
		t.Fatalf("expected 12 deployments, got %d", len(deps))
	}
	seenEpoch := make(map[time.Time]bool)
	seenSlot := make(map[int]bool)
	seenAngle := make(map[float64]bool)
	for _, d := range deps {
		if seenEpoch[d.DeployEpoch] {
			t.Fatalf("duplicate deployment epoch %s", d.DeployEpoch)
		}
		if seenSlot[d.Slot] {
			t.Fatalf("duplicate slot %d", d.Slot)
		}
		if seenAngle[d.SlotAngle] {
			t.Fatalf("duplicate slot angle %f", d.SlotAngle)
		}
		seenEpoch[d.DeployEpoch] = true
		seenSlot[d.Slot] = true
		seenAngle[d.SlotAngle] = true
		if d.Result == nil || d.Result.Failed() {
			t.Fatalf("slot %d has no usable plan", d.Slot)
		}
	}
	// Even spacing over the shell.
	if deps[1].SlotAngle-deps[0].SlotAngle != 30 {
		t.Fatalf("expected 30 degree spacing, got %f", deps[1].SlotAngle-deps[0].SlotAngle)
	}
}

func TestCompareThrusters(t *testing.T) {
	fo := NewFuelOptimizer(Bipropellant, nil)
	rows := fo.CompareThrusters(testRequirements(), StockThrusters())
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	// Feasible rows first, ranked by fuel.
	lastFuel := -1.0
	feasibleDone := false
	for _, row := range rows {
		if !row.Feasible {
			feasibleDone = true
			continue
		}
		if feasibleDone {
			t.Fatal("feasible row after an infeasible one")
		}
		if row.Result.Plan.FuelMass < lastFuel {
			t.Fatalf("ranking not sorted by fuel: %f after %f", row.Result.Plan.FuelMass, lastFuel)
		}
		lastFuel = row.Result.Plan.FuelMass
	}
	if rows[0].Thruster.Name != IonXIPS25.Name {
		t.Fatalf("expected the ion system to win on fuel, got %s", rows[0].Thruster.Name)
	}
	// The monopropellant burn exceeds its duration cap for this Δv.
	if last := rows[len(rows)-1]; last.Feasible || last.Thruster.Name != Monopropellant.Name {
		t.Fatalf("expected the monopropellant row to be infeasible and last, got %s feasible=%t", last.Thruster.Name, last.Feasible)
	}
}
