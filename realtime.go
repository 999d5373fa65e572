package fuelopt

import (
	"fmt"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"
)

// SessionState tracks a real-time session through its lifecycle.
type SessionState uint8

const (
	SessionIdle SessionState = iota
	SessionMonitoring
	SessionConstraintViolated
	SessionReoptimizing
	SessionStopped
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionMonitoring:
		return "monitoring"
	case SessionConstraintViolated:
		return "constraint-violated"
	case SessionReoptimizing:
		return "reoptimizing"
	case SessionStopped:
		return "stopped"
	}
	panic("cannot stringify unknown session state")
}

// RealTimeConstraints holds the thresholds and intervals of a session.
// Immutable once the session is created.
type RealTimeConstraints struct {
	MinFuelMass      float64       // kg
	MinPowerLevel    float64       // fraction of nominal
	MaxDecayRate     float64       // km of altitude lost per day
	MaxTemperature   float64       // K (0 disables the check)
	CheckInterval    time.Duration // monitor loop tick
	OptimizeInterval time.Duration
	// EscalateAfter is the number of violation episodes of one constraint
	// class after which the session switches its optimization priority to
	// fuel for the remaining cycles.
	EscalateAfter int
}

// Planner runs one mission optimization for the real-time loop. Satisfied by
// *FuelOptimizer.
type Planner interface {
	OptimizeMission(req MissionRequirements) (*Result, error)
}

// AlertCallback receives constraint events in emission order.
type AlertCallback func(ConstraintEvent)

// PerformanceStats summarizes a session's loop activity.
type PerformanceStats struct {
	MonitorTicks  int
	CyclesRun     int
	CyclesSkipped int
	EventsEmitted int
	OptimizeTime  time.Duration
}

// Status is a snapshot of a session, readable at any time without blocking
// on an in-flight optimization.
type Status struct {
	SessionID  uuid.UUID
	State      SessionState
	Paused     bool
	Priority   Priority
	Vehicle    VehicleState
	LastResult *Result
	Stats      PerformanceStats
}

// Session continuously monitors a vehicle and re-plans its mission when
// constraints are violated. Create with NewSession, drive with Start/Stop.
type Session struct {
	ID          uuid.UUID
	req         MissionRequirements
	constraints RealTimeConstraints
	planner     Planner
	telemetry   Telemetry
	logger      kitlog.Logger
	metrics     *SessionCollector
	history     eventHistory

	mu        sync.RWMutex
	state     SessionState
	paused    bool
	vehicle   VehicleState
	prevAlt   float64
	priority  Priority
	episodes  map[ConstraintClass]int
	active    map[ConstraintClass]bool
	results   []*Result
	stats     PerformanceStats
	callbacks []AlertCallback

	reopt chan ConstraintClass
	quit  chan struct{}
	wg    sync.WaitGroup
}

// NewSession creates an idle real-time session. metrics may be nil.
func NewSession(req MissionRequirements, rtc RealTimeConstraints, planner Planner, tel Telemetry, logger kitlog.Logger, metrics *SessionCollector) (*Session, error) {
	if planner == nil || tel == nil {
		return nil, fmt.Errorf("real-time session needs a planner and a telemetry source")
	}
	if rtc.CheckInterval <= 0 || rtc.OptimizeInterval <= 0 {
		return nil, fmt.Errorf("intervals must be positive, got check=%s optimize=%s", rtc.CheckInterval, rtc.OptimizeInterval)
	}
	if rtc.EscalateAfter <= 0 {
		rtc.EscalateAfter = 3
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	id := uuid.New()
	return &Session{
		ID:          id,
		req:         req,
		constraints: rtc,
		planner:     planner,
		telemetry:   tel,
		logger:      kitlog.With(logger, "subsys", "realtime", "session", id.String()[:8]),
		metrics:     metrics,
		priority:    req.Priority,
		episodes:    make(map[ConstraintClass]int),
		active:      make(map[ConstraintClass]bool),
		reopt:       make(chan ConstraintClass, 1),
	}, nil
}

// Start launches the monitor and optimization loops from the given initial
// vehicle state. A stopped session starts a fresh run; a running session
// cannot be started again.
func (s *Session) Start(initial VehicleState) error {
	s.mu.Lock()
	switch s.state {
	case SessionIdle:
	case SessionStopped:
		// Fresh run: episode bookkeeping resets, the event history stays.
		s.episodes = make(map[ConstraintClass]int)
		s.active = make(map[ConstraintClass]bool)
		s.priority = s.req.Priority
	default:
		s.mu.Unlock()
		return fmt.Errorf("session is %s, cannot start", s.state)
	}
	s.vehicle = initial
	s.prevAlt = initial.State.Altitude(s.req.Body)
	s.state = SessionMonitoring
	s.quit = make(chan struct{})
	quit := s.quit
	s.mu.Unlock()

	s.logger.Log("level", "info", "state", SessionMonitoring, "fuel", fmt.Sprintf("%.3f", initial.FuelMass))
	s.wg.Add(2)
	go s.monitorLoop(quit)
	go s.optimizeLoop(quit)
	return nil
}

// Stop signals both loops to finish their current tick, joins them, and
// transitions to Stopped. Always returns, even mid-optimization.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == SessionIdle || s.state == SessionStopped || s.quit == nil {
		s.mu.Unlock()
		return
	}
	quit := s.quit
	s.quit = nil // concurrent Stop sees nil and returns
	s.mu.Unlock()
	close(quit)
	s.wg.Wait()
	s.setState(SessionStopped)
	s.logger.Log("level", "info", "state", SessionStopped)
}

// Pause suspends optimization cycles while monitoring and constraint
// evaluation continue. Violation requests arriving while paused are dropped;
// scheduled cycles pick up again on Resume.
func (s *Session) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.logger.Log("level", "info", "optimization", "paused")
}

// Resume lifts a pause; the next due cycle or violation plans again.
func (s *Session) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.logger.Log("level", "info", "optimization", "resumed")
}

func (s *Session) isPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// AddAlertCallback registers fn for every subsequent constraint event.
// Callbacks run in event order, outside the session locks; a panicking
// callback is logged and does not disturb the loops.
func (s *Session) AddAlertCallback(fn AlertCallback) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
}

// CurrentStatus returns a snapshot of the session. Never blocks on an
// in-progress re-optimization.
func (s *Session) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		SessionID: s.ID,
		State:     s.state,
		Paused:    s.paused,
		Priority:  s.priority,
		Vehicle:   s.vehicle,
		Stats:     s.stats,
	}
	st.Stats.EventsEmitted = s.history.len()
	if n := len(s.results); n > 0 {
		st.LastResult = s.results[n-1]
	}
	return st
}

// EventHistory returns up to n most recent constraint events, oldest first.
// n ≤ 0 returns the full history.
func (s *Session) EventHistory(n int) []ConstraintEvent {
	return s.history.tail(n)
}

// OptimizationHistory returns all results produced so far, oldest first.
func (s *Session) OptimizationHistory() []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Result, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// monitorLoop samples telemetry and evaluates constraints every tick. Only
// this loop mutates the vehicle state.
func (s *Session) monitorLoop(quit chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.constraints.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			s.monitorTick()
		}
	}
}

// monitorTick runs one sample-and-evaluate pass. Panics are recovered into a
// critical event so one bad tick cannot kill monitoring.
func (s *Session) monitorTick() {
	defer func() {
		if r := recover(); r != nil {
			s.emit(ConstraintEvent{
				Class:       ConstraintTickFailure,
				Severity:    SeverityCritical,
				Description: fmt.Sprintf("monitor tick panicked: %v", r),
				Stamp:       time.Now(),
			})
		}
	}()

	s.mu.RLock()
	prev := s.vehicle
	prevAlt := s.prevAlt
	s.mu.RUnlock()

	next, err := s.telemetry.Next(prev, s.constraints.CheckInterval)
	if err != nil {
		s.logger.Log("level", "error", "tick", "monitor", "err", err)
		return
	}

	s.mu.Lock()
	s.vehicle = next
	s.prevAlt = next.State.Altitude(s.req.Body)
	s.stats.MonitorTicks++
	s.mu.Unlock()
	s.metrics.recordTick(next)

	for _, v := range s.evaluate(next, prevAlt) {
		s.onViolation(v)
	}
	s.clearRecovered(next, prevAlt)
}

// violation is one threshold breach observed in a tick.
type violation struct {
	class    ConstraintClass
	severity Severity
	desc     string
}

// evaluate compares the vehicle state against the thresholds.
func (s *Session) evaluate(v VehicleState, prevAlt float64) []violation {
	rtc := s.constraints
	var out []violation
	if v.FuelMass < rtc.MinFuelMass {
		sev := SeverityHigh
		if v.FuelMass < rtc.MinFuelMass/2 {
			sev = SeverityCritical
		}
		out = append(out, violation{ConstraintFuel, sev, fmt.Sprintf("fuel mass %.3f kg below minimum %.3f kg", v.FuelMass, rtc.MinFuelMass)})
	}
	if v.PowerLevel < rtc.MinPowerLevel {
		sev := SeverityHigh
		if v.PowerLevel < rtc.MinPowerLevel/2 {
			sev = SeverityCritical
		}
		out = append(out, violation{ConstraintPower, sev, fmt.Sprintf("power level %.3f below minimum %.3f", v.PowerLevel, rtc.MinPowerLevel)})
	}
	if rtc.MaxDecayRate > 0 {
		alt := v.State.Altitude(s.req.Body)
		perDay := (prevAlt - alt) / s.constraints.CheckInterval.Seconds() * 86400
		if perDay > rtc.MaxDecayRate {
			out = append(out, violation{ConstraintDecayRate, SeverityMedium, fmt.Sprintf("altitude decaying %.3f km/day, limit %.3f", perDay, rtc.MaxDecayRate)})
		}
	}
	if rtc.MaxTemperature > 0 && v.Temperature > rtc.MaxTemperature {
		out = append(out, violation{ConstraintTemperature, SeverityMedium, fmt.Sprintf("temperature %.1f K above limit %.1f K", v.Temperature, rtc.MaxTemperature)})
	}
	return out
}

// onViolation handles edge-triggered event emission, escalation, and the
// reoptimize request for one observed violation.
func (s *Session) onViolation(v violation) {
	s.mu.Lock()
	if s.active[v.class] {
		s.mu.Unlock()
		return // sustained episode, already reported
	}
	s.active[v.class] = true
	s.episodes[v.class]++
	escalate := s.episodes[v.class] >= s.constraints.EscalateAfter && s.priority != PriorityFuel
	if escalate {
		s.priority = PriorityFuel
	}
	s.state = SessionConstraintViolated
	s.mu.Unlock()

	s.emit(ConstraintEvent{Class: v.class, Severity: v.severity, Description: v.desc, Stamp: time.Now()})
	if escalate {
		s.logger.Log("level", "warn", "policy", "escalation", "class", v.class, "priority", PriorityFuel)
	}
	// Single-slot request: if a reoptimization is already pending, this
	// violation rides along with it.
	select {
	case s.reopt <- v.class:
	default:
	}
}

// clearRecovered closes episodes whose class is back within limits for this
// full tick, re-arming the edge trigger.
func (s *Session) clearRecovered(v VehicleState, prevAlt float64) {
	violating := make(map[ConstraintClass]bool)
	for _, viol := range s.evaluate(v, prevAlt) {
		violating[viol.class] = true
	}
	s.mu.Lock()
	for class, on := range s.active {
		if on && !violating[class] {
			s.active[class] = false
		}
	}
	s.mu.Unlock()
}

// optimizeLoop re-plans on its own schedule and immediately on violation
// requests. At most one optimization is in flight at a time; cycles falling
// due during a long run are skipped, not queued.
func (s *Session) optimizeLoop(quit chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.constraints.OptimizeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case class := <-s.reopt:
			if s.isPaused() {
				s.logger.Log("level", "info", "tick", "optimize", "paused", true, "trigger", class)
				continue
			}
			s.setState(SessionReoptimizing)
			s.logger.Log("level", "info", "state", SessionReoptimizing, "trigger", class)
			s.optimizeTick()
			s.setState(SessionMonitoring)
			s.drainSkipped(ticker)
		case <-ticker.C:
			if s.isPaused() {
				continue
			}
			s.optimizeTick()
			s.drainSkipped(ticker)
		}
	}
}

// drainSkipped drops a cycle that fell due while the previous one ran, and
// records it. Bounds the backlog to the one optimization in flight.
func (s *Session) drainSkipped(ticker *time.Ticker) {
	select {
	case <-ticker.C:
		s.mu.Lock()
		s.stats.CyclesSkipped++
		s.mu.Unlock()
		if s.metrics != nil && s.metrics.SkippedCycles != nil {
			s.metrics.SkippedCycles.Inc()
		}
		s.emit(ConstraintEvent{
			Class:       ConstraintCycleSkipped,
			Severity:    SeverityLow,
			Description: "optimization cycle skipped: previous cycle still in flight",
			Stamp:       time.Now(),
		})
	default:
	}
}

// optimizeTick snapshots the vehicle, re-plans the mission against it, and
// archives the result. Never holds the session lock while planning.
func (s *Session) optimizeTick() {
	defer func() {
		if r := recover(); r != nil {
			s.emit(ConstraintEvent{
				Class:       ConstraintTickFailure,
				Severity:    SeverityCritical,
				Description: fmt.Sprintf("optimization tick panicked: %v", r),
				Stamp:       time.Now(),
			})
		}
	}()

	s.mu.RLock()
	snapshot := s.vehicle
	req := s.req
	req.Priority = s.priority
	s.mu.RUnlock()
	req.DryMass = snapshot.DryMass
	req.FuelMass = snapshot.FuelMass
	if req.MaxPower > 0 {
		req.MaxPower *= snapshot.PowerLevel
	}

	start := time.Now()
	res, err := s.planner.OptimizeMission(req)
	elapsed := time.Since(start)
	if s.metrics != nil {
		if s.metrics.OptimizationRuns != nil {
			s.metrics.OptimizationRuns.Inc()
		}
		if s.metrics.OptimizeDurations != nil {
			s.metrics.OptimizeDurations.Observe(elapsed.Seconds())
		}
	}
	s.mu.Lock()
	s.stats.CyclesRun++
	s.stats.OptimizeTime += elapsed
	if res != nil {
		s.results = append(s.results, res)
	}
	s.mu.Unlock()
	if err != nil {
		// Planning failures are routine signals here, not loop errors.
		s.logger.Log("level", "warn", "tick", "optimize", "elapsed", elapsed, "err", err)
		return
	}
	s.logger.Log("level", "info", "tick", "optimize", "elapsed", elapsed, "strategy", res.Strategy, "fuel", fmt.Sprintf("%.3f", res.Plan.FuelMass))
}

// emit archives an event and delivers it to the registered callbacks, in
// order, outside the session locks.
func (s *Session) emit(e ConstraintEvent) {
	s.history.append(e)
	s.metrics.recordEvent(e)
	s.mu.RLock()
	cbs := make([]AlertCallback, len(s.callbacks))
	copy(cbs, s.callbacks)
	s.mu.RUnlock()
	s.logger.Log("level", "warn", "event", e.Class, "severity", e.Severity, "desc", e.Description)
	for _, cb := range cbs {
		s.deliver(cb, e)
	}
}

func (s *Session) deliver(cb AlertCallback, e ConstraintEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Log("level", "error", "callback", "panic", "recovered", fmt.Sprint(r))
		}
	}()
	cb(e)
}
