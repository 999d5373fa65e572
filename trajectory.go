package fuelopt

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	kitlog "github.com/go-kit/kit/log"
)

// Priority selects the objective a trajectory search minimizes.
type Priority uint8

const (
	// PriorityFuel minimizes total propellant mass.
	PriorityFuel Priority = iota + 1
	// PriorityTime minimizes total transfer time.
	PriorityTime
	// PriorityMass minimizes the wet mass budget at departure.
	PriorityMass
	// PriorityBalanced minimizes a normalized weighted sum of the three.
	PriorityBalanced
)

func (p Priority) String() string {
	switch p {
	case PriorityFuel:
		return "fuel"
	case PriorityTime:
		return "time"
	case PriorityMass:
		return "mass"
	case PriorityBalanced:
		return "balanced"
	}
	panic("cannot stringify unknown priority")
}

// ParsePriority returns the Priority named by s.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "fuel":
		return PriorityFuel, nil
	case "time":
		return PriorityTime, nil
	case "mass":
		return PriorityMass, nil
	case "balanced":
		return PriorityBalanced, nil
	}
	return 0, fmt.Errorf("unknown optimization priority %q", s)
}

// Weights sets the relative importance of the normalized fuel, time, and mass
// terms in the balanced objective.
type Weights struct {
	Fuel, Time, Mass float64
}

// BalancedWeights is the default weighting of the balanced objective.
var BalancedWeights = Weights{Fuel: 0.4, Time: 0.3, Mass: 0.3}

// SearchStatus tracks an optimization request through its lifecycle.
type SearchStatus uint8

const (
	StatusReceived SearchStatus = iota
	StatusFormulating
	StatusSearching
	StatusConverged
	StatusFailed
)

func (s SearchStatus) String() string {
	switch s {
	case StatusReceived:
		return "received"
	case StatusFormulating:
		return "formulating"
	case StatusSearching:
		return "searching"
	case StatusConverged:
		return "converged"
	case StatusFailed:
		return "failed"
	}
	panic("cannot stringify unknown search status")
}

// Maneuver is one burn of a plan. Δv is expressed in the VNC frame of the
// burn point (velocity, normal, conormal), in km/s.
type Maneuver struct {
	Δv       []float64
	Epoch    time.Time
	Duration time.Duration
}

// Magnitude returns the Δv magnitude of this maneuver in km/s.
func (m Maneuver) Magnitude() float64 {
	return norm(m.Δv)
}

func (m Maneuver) String() string {
	return fmt.Sprintf("%.4f km/s @ %s (burn %s)", m.Magnitude(), m.Epoch.Format(time.RFC3339), m.Duration)
}

// HardConstraints are filters applied to every candidate before scoring. A
// candidate violating any of them is discarded, never selected.
type HardConstraints struct {
	MaxTime time.Duration // total transfer time
	MaxFuel float64       // kg of propellant
	MaxMass float64       // kg wet mass at departure
}

// admits reports whether a candidate with the given totals passes.
func (h HardConstraints) admits(transferTime time.Duration, fuelMass, wetMass float64) bool {
	if h.MaxTime > 0 && transferTime > h.MaxTime {
		return false
	}
	if h.MaxFuel > 0 && fuelMass > h.MaxFuel {
		return false
	}
	if h.MaxMass > 0 && wetMass > h.MaxMass {
		return false
	}
	return true
}

// Plan is the outcome of a trajectory search.
type Plan struct {
	Status       SearchStatus
	Partial      bool // search budget exhausted, best-so-found returned
	Maneuvers    []Maneuver
	TotalΔv      float64 // km/s
	FuelMass     float64 // kg consumed
	TransferTime time.Duration
	FinalMass    float64 // kg at arrival
	FinalState   StateVector
	Objective    float64
	Thruster     Thruster
	Generations  int // GA generations or gradient iterations spent
}

func (p *Plan) String() string {
	return fmt.Sprintf("plan[%s]: %d burns Δv=%.4f km/s fuel=%.3f kg tof=%s", p.Status, len(p.Maneuvers), p.TotalΔv, p.FuelMass, p.TransferTime)
}

// TrajectoryOptimizer searches for maneuver plans around a given body with a
// given thruster. Safe for sequential use; create one per concurrent search.
type TrajectoryOptimizer struct {
	Body     CelestialObject
	Thruster Thruster
	Weights  Weights
	Step     time.Duration // integration step for continuous-thrust arcs
	rng      *rand.Rand
	logger   kitlog.Logger
}

// NewTrajectoryOptimizer returns an optimizer seeded for reproducible
// searches.
func NewTrajectoryOptimizer(body CelestialObject, thruster Thruster, logger kitlog.Logger, seed int64) *TrajectoryOptimizer {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &TrajectoryOptimizer{
		Body:     body,
		Thruster: thruster,
		Weights:  BalancedWeights,
		Step:     time.Minute,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   kitlog.With(logger, "subsys", "trajectory"),
	}
}

// candidate is an evaluated maneuver sequence prior to scoring.
type candidate struct {
	burns        []Burn
	radii        []float64 // apsis radius at each burn
	signs        []float64 // along-track burn direction
	totalΔv      float64
	fuelMass     float64
	transferTime time.Duration
	finalMass    float64
}

// score returns the objective value of a candidate under the given priority.
// Normalization references: refFuel and refTime are the Hohmann baseline for
// the same transfer, dryMass the vehicle mass without propellant.
func (opt *TrajectoryOptimizer) score(c candidate, pr Priority, refFuel float64, refTime time.Duration, dryMass float64) float64 {
	switch pr {
	case PriorityFuel:
		return c.fuelMass
	case PriorityTime:
		return c.transferTime.Seconds()
	case PriorityMass:
		// Wet mass this candidate actually needs at departure.
		return dryMass + c.fuelMass
	case PriorityBalanced:
		fTerm := c.fuelMass / refFuel
		tTerm := c.transferTime.Seconds() / refTime.Seconds()
		mTerm := (dryMass + c.fuelMass) / (dryMass + refFuel)
		return opt.Weights.Fuel*fTerm + opt.Weights.Time*tTerm + opt.Weights.Mass*mTerm
	}
	panic("cannot score unknown priority")
}

// evalApsisSequence evaluates a tangential multi-burn transfer through the
// given apsis radius sequence. radii[0] and radii[len-1] are the circular
// departure and arrival radii; interior entries are intermediate apsides.
// Each leg is half an ellipse between consecutive radii.
func (opt *TrajectoryOptimizer) evalApsisSequence(radii []float64, dryMass, fuelAvail, powerAvail float64) (candidate, error) {
	μ := opt.Body.μ
	n := len(radii) - 1 // legs
	Δvs := make([]float64, n+1)
	signs := make([]float64, n+1)
	var tof time.Duration
	for j := 0; j <= n; j++ {
		r := radii[j]
		// Velocity on the inbound conic at radius r.
		var vIn float64
		if j == 0 {
			vIn = math.Sqrt(μ / r) // departure circular orbit
		} else {
			aIn := (radii[j-1] + r) / 2
			vIn = math.Sqrt(μ * (2/r - 1/aIn))
		}
		// Velocity on the outbound conic at radius r.
		var vOut float64
		if j == n {
			vOut = math.Sqrt(μ / r) // arrival circular orbit
		} else {
			aOut := (r + radii[j+1]) / 2
			vOut = math.Sqrt(μ * (2/r - 1/aOut))
			tof += time.Duration(math.Pi*math.Sqrt(math.Pow(aOut, 3)/μ)) * time.Second
		}
		Δvs[j] = math.Abs(vOut - vIn)
		signs[j] = sign(vOut - vIn)
	}
	wet := dryMass + fuelAvail
	burns, err := opt.Thruster.SequenceConsumption(Δvs, wet, fuelAvail, powerAvail)
	if err != nil {
		return candidate{}, err
	}
	var totalΔv, fuel float64
	for _, b := range burns {
		totalΔv += b.Δv
		fuel += b.FuelMass
	}
	return candidate{
		burns:        burns,
		radii:        append([]float64{}, radii...),
		signs:        signs,
		totalΔv:      totalΔv,
		fuelMass:     fuel,
		transferTime: tof,
		finalMass:    wet - fuel,
	}, nil
}

// planFromCandidate assembles the exported Plan for an evaluated candidate.
func (opt *TrajectoryOptimizer) planFromCandidate(c candidate, epoch time.Time, status SearchStatus, partial bool, gens int) *Plan {
	mnvs := make([]Maneuver, len(c.burns))
	t := epoch
	for j, b := range c.burns {
		mnvs[j] = Maneuver{Δv: []float64{c.signs[j] * b.Δv, 0, 0}, Epoch: t, Duration: b.Duration}
		if j < len(c.burns)-1 {
			aLeg := (c.radii[j] + c.radii[j+1]) / 2
			t = t.Add(time.Duration(math.Pi*math.Sqrt(math.Pow(aLeg, 3)/opt.Body.μ)) * time.Second)
		}
	}
	rf := c.radii[len(c.radii)-1]
	final, _ := NewOrbitFromOE(rf, 0, 0, 0, 0, 0, opt.Body)
	return &Plan{
		Status:       status,
		Partial:      partial,
		Maneuvers:    mnvs,
		TotalΔv:      c.totalΔv,
		FuelMass:     c.fuelMass,
		TransferTime: c.transferTime,
		FinalMass:    c.finalMass,
		FinalState:   final.StateVector(t),
		Thruster:     opt.Thruster,
		Generations:  gens,
	}
}

// HohmannPlan returns the analytic two-burn transfer between circular orbits
// at the given altitudes. Converged unless the radii are invalid or the hard
// constraints reject the only candidate.
func (opt *TrajectoryOptimizer) HohmannPlan(initAlt, targetAlt float64, epoch time.Time, dryMass, fuelAvail, powerAvail float64, hard HardConstraints) (*Plan, error) {
	r1 := opt.Body.Radius + initAlt
	r2 := opt.Body.Radius + targetAlt
	if _, err := Hohmann(r1, r2, opt.Body); err != nil {
		return nil, err
	}
	opt.logger.Log("level", "debug", "path", "hohmann", "status", StatusReceived)
	c, err := opt.evalApsisSequence([]float64{r1, r2}, dryMass, fuelAvail, powerAvail)
	if err != nil {
		return nil, err
	}
	if !hard.admits(c.transferTime, c.fuelMass, dryMass+fuelAvail) {
		return nil, fmt.Errorf("hohmann transfer violates mission constraints: %w", ErrUnreachableTarget)
	}
	plan := opt.planFromCandidate(c, epoch, StatusConverged, false, 0)
	plan.Objective = opt.score(c, PriorityBalanced, c.fuelMass, c.transferTime, dryMass)
	opt.logger.Log("level", "info", "path", "hohmann", "status", plan.Status, "Δv", fmt.Sprintf("%.4f", plan.TotalΔv), "tof", plan.TransferTime)
	return plan, nil
}

// MultiImpulsePlan searches burn apsis sequences with a genetic algorithm.
// nBurns must be at least 3 (use HohmannPlan for the two-burn case). The
// search converges when the objective stalls for gaStagnation generations;
// hitting the generation cap returns the best-so-found with Partial set.
// Returns ErrUnreachableTarget when no candidate passes the hard constraints.
func (opt *TrajectoryOptimizer) MultiImpulsePlan(initAlt, targetAlt float64, nBurns int, epoch time.Time, dryMass, fuelAvail, powerAvail float64, hard HardConstraints, pr Priority) (*Plan, error) {
	if nBurns < 3 {
		return nil, fmt.Errorf("multi-impulse search needs at least 3 burns, got %d", nBurns)
	}
	r1 := opt.Body.Radius + initAlt
	r2 := opt.Body.Radius + targetAlt
	if r1 <= opt.Body.Radius || r2 <= opt.Body.Radius {
		return nil, fmt.Errorf("altitudes %.1f/%.1f km: %w", initAlt, targetAlt, ErrInvalidOrbit)
	}
	opt.logger.Log("level", "info", "path", "multi-impulse", "status", StatusReceived, "burns", nBurns, "priority", pr)
	ref, err := opt.evalApsisSequence([]float64{r1, r2}, dryMass, fuelAvail, powerAvail)
	if err != nil {
		return nil, err
	}
	opt.logger.Log("level", "debug", "path", "multi-impulse", "status", StatusFormulating, "refΔv", fmt.Sprintf("%.4f", ref.totalΔv))
	wet := dryMass + fuelAvail

	// Genes are the intermediate apsis radii. Bounds span from just above
	// the lower circular radius out to a bi-elliptic envelope.
	lo, hi := math.Min(r1, r2), math.Max(r1, r2)
	rCap := hi * 8
	if opt.Body.SOI > 0 && rCap > opt.Body.SOI {
		rCap = opt.Body.SOI
	}
	bounds := make([][2]float64, nBurns-2)
	for k := range bounds {
		bounds[k] = [2]float64{lo, rCap}
	}
	fit := func(genes []float64) (float64, bool) {
		radii := make([]float64, 0, nBurns)
		radii = append(radii, r1)
		radii = append(radii, genes...)
		radii = append(radii, r2)
		c, err := opt.evalApsisSequence(radii, dryMass, fuelAvail, powerAvail)
		if err != nil {
			return math.Inf(1), false
		}
		if !hard.admits(c.transferTime, c.fuelMass, wet) {
			return math.Inf(1), false
		}
		return opt.score(c, pr, ref.fuelMass, ref.transferTime, dryMass), true
	}

	opt.logger.Log("level", "info", "path", "multi-impulse", "status", StatusSearching)
	res := runGA(defaultGAConfig(), bounds, fit, opt.rng)
	if !res.found {
		return nil, fmt.Errorf("no %d-burn candidate passes the mission constraints: %w", nBurns, ErrUnreachableTarget)
	}
	radii := make([]float64, 0, nBurns)
	radii = append(radii, r1)
	radii = append(radii, res.best...)
	radii = append(radii, r2)
	c, err := opt.evalApsisSequence(radii, dryMass, fuelAvail, powerAvail)
	if err != nil {
		return nil, err
	}
	plan := opt.planFromCandidate(c, epoch, StatusConverged, !res.converged, res.generations)
	plan.Objective = res.cost
	opt.logger.Log("level", "info", "path", "multi-impulse", "status", plan.Status, "generations", res.generations, "partial", plan.Partial, "Δv", fmt.Sprintf("%.4f", plan.TotalΔv))
	return plan, nil
}

// ContinuousThrustPlan searches a throttle profile for a low-thrust spiral
// between circular orbits. The spiral Δv is the Edelbaum circular-to-circular
// value; the profile sets segment throttles which trade burn time against
// operating margin. Fails when the descent stagnates without converging.
func (opt *TrajectoryOptimizer) ContinuousThrustPlan(initAlt, targetAlt float64, epoch time.Time, dryMass, fuelAvail, powerAvail float64, hard HardConstraints, pr Priority) (*Plan, error) {
	r1 := opt.Body.Radius + initAlt
	r2 := opt.Body.Radius + targetAlt
	if r1 <= opt.Body.Radius || r2 <= opt.Body.Radius {
		return nil, fmt.Errorf("altitudes %.1f/%.1f km: %w", initAlt, targetAlt, ErrInvalidOrbit)
	}
	opt.logger.Log("level", "info", "path", "continuous", "status", StatusReceived, "priority", pr)
	μ := opt.Body.μ
	ΔvSpiral := math.Abs(math.Sqrt(μ/r1) - math.Sqrt(μ/r2))
	isp := opt.Thruster.EffectiveIsp(powerAvail)
	if isp <= 0 {
		return nil, fmt.Errorf("%s: no power for spiral: %w", opt.Thruster.Name, ErrInfeasibleBurn)
	}
	wet := dryMass + fuelAvail
	fuel := FuelForΔv(ΔvSpiral, isp, wet)
	if fuel > fuelAvail {
		return nil, fmt.Errorf("spiral needs %.3f kg, have %.3f kg: %w", fuel, fuelAvail, ErrInfeasibleBurn)
	}
	ref, err := opt.evalApsisSequence([]float64{r1, r2}, dryMass, fuelAvail, powerAvail)
	if err != nil {
		// Impulsive baseline infeasible for this thruster: normalize on
		// the spiral itself.
		ref = candidate{fuelMass: fuel, transferTime: time.Duration(1)}
	}
	opt.logger.Log("level", "debug", "path", "continuous", "status", StatusFormulating, "Δv", fmt.Sprintf("%.4f", ΔvSpiral))

	const segments = 6
	cost := func(th []float64) float64 {
		t, f := opt.spiralProfile(th, ΔvSpiral, wet, isp)
		if !hard.admits(t, f, wet) {
			return math.Inf(1)
		}
		c := candidate{fuelMass: f, transferTime: t, finalMass: wet - f, totalΔv: ΔvSpiral}
		return opt.score(c, pr, ref.fuelMass, ref.transferTime, dryMass)
	}
	// The spiral is fastest at full throttle: if that profile cannot pass
	// the constraints, nothing can.
	ones := make([]float64, segments)
	for k := range ones {
		ones[k] = 1
	}
	if minTOF, f := opt.spiralProfile(ones, ΔvSpiral, wet, isp); !hard.admits(minTOF, f, wet) {
		return nil, fmt.Errorf("full-throttle spiral still violates the mission constraints: %w", ErrUnreachableTarget)
	}
	x0 := make([]float64, segments)
	for k := range x0 {
		x0[k] = 0.8
	}
	if math.IsInf(cost(x0), 1) {
		copy(x0, ones)
	}
	bounds := make([][2]float64, segments)
	for k := range bounds {
		bounds[k] = [2]float64{0.05, 1}
	}
	opt.logger.Log("level", "info", "path", "continuous", "status", StatusSearching)
	res, err := descend(defaultGradConfig(), x0, bounds, cost)
	if err != nil {
		return nil, err
	}
	tof, fuelUsed := opt.spiralProfile(res.x, ΔvSpiral, wet, isp)
	if !hard.admits(tof, fuelUsed, wet) {
		return nil, fmt.Errorf("no throttle profile passes the mission constraints: %w", ErrUnreachableTarget)
	}

	// One numerical arc at the chosen mean throttle for the predicted
	// arrival state.
	throttle := 0.0
	for _, th := range res.x {
		throttle += th
	}
	throttle /= segments
	mdotFull := opt.Thruster.Thrust / (isp * g0)
	init, _ := NewOrbitFromOE(r1, 0, 0, 0, 0, 0, opt.Body)
	s0 := init.StateVector(epoch)
	profile := func(t float64, s StateVector) ([]float64, float64) {
		m := wet - throttle*mdotFull*t
		if m < dryMass {
			m = dryMass
		}
		aMag := throttle * opt.Thruster.Thrust / m / 1e3 // N/kg → km/s^2
		vhat := unit(s.V)
		if r2 < r1 {
			vhat = []float64{-vhat[0], -vhat[1], -vhat[2]}
		}
		return []float64{aMag * vhat[0], aMag * vhat[1], aMag * vhat[2]}, throttle * mdotFull
	}
	arcDur := tof
	if arcDur > 24*time.Hour {
		arcDur = 24 * time.Hour // representative leading arc
	}
	final, _ := NumericalPropagate(s0, fuelAvail, arcDur, Perturbations{}, opt.Body, opt.Step, profile)

	plan := &Plan{
		Status:       StatusConverged,
		Maneuvers:    []Maneuver{{Δv: []float64{ΔvSpiral, 0, 0}, Epoch: epoch, Duration: tof}},
		TotalΔv:      ΔvSpiral,
		FuelMass:     fuelUsed,
		TransferTime: tof,
		FinalMass:    wet - fuelUsed,
		FinalState:   final,
		Objective:    res.cost,
		Thruster:     opt.Thruster,
		Generations:  res.iterations,
	}
	opt.logger.Log("level", "info", "path", "continuous", "status", plan.Status, "iterations", res.iterations, "tof", tof)
	return plan, nil
}

// spiralProfile returns the time and fuel of a segmented low-thrust spiral.
// Each segment covers an equal share of the spiral Δv at its own throttle;
// mass depletes segment by segment.
func (opt *TrajectoryOptimizer) spiralProfile(throttles []float64, ΔvTotal, wetMass, isp float64) (time.Duration, float64) {
	m := wetMass
	perSeg := ΔvTotal / float64(len(throttles))
	var tof float64
	for _, th := range throttles {
		if th < 1e-3 {
			th = 1e-3
		}
		seg := FuelForΔv(perSeg, isp, m)
		accel := th * opt.Thruster.Thrust / m / 1e3 // km/s^2
		tof += perSeg / accel
		m -= seg
	}
	return time.Duration(tof * float64(time.Second)), wetMass - m
}
