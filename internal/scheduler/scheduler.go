// Package scheduler owns the consciousness control loop: cycle admission,
// the energy heartbeat, dormancy and wake transitions, sleep sessions and
// the one-slot manual trigger queue. All state transitions happen on the
// loop goroutine; public methods only post commands or read snapshots.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"yui/internal/config"
	"yui/internal/dpd"
	"yui/internal/energy"
	"yui/internal/events"
	"yui/internal/llm"
	"yui/internal/logging"
	"yui/internal/store"
	"yui/internal/trigger"
	"yui/internal/types"
)

// State is the coarse consciousness state.
type State string

const (
	StateActive   State = "active"
	StateDormant  State = "dormant"
	StateSleeping State = "sleeping"
)

// ErrStopping is returned by the stage gate once Stop has been requested;
// the in-flight cycle fails cleanly instead of being killed mid-call.
var ErrStopping = errors.New("engine stopping")

// Runner executes one thought cycle. Satisfied by *cycle.Orchestrator.
type Runner interface {
	Run(ctx context.Context, t types.Trigger) (*types.ThoughtCycle, error)
}

// Storage is the persistence the scheduler itself needs (the orchestrator
// carries its own slice).
type Storage interface {
	SaveEnergy(current float64) error
	LoadEnergy() (float64, bool, error)
	CycleCounts() (cycles, thoughts int64, err error)
	SignificantThoughts(n int) ([]types.Thought, error)
	RecordBelief(statement string, significance float64) error
	RecordSleepSession(rec store.SleepRecord) error
}

// Snapshot is a point-in-time view of the engine for status queries.
type Snapshot struct {
	Running      bool // loops started and not yet stopped
	State        State
	Paused       bool
	Processing   bool
	Energy       float64
	EnergyMax    float64
	Weights      dpd.Weights
	QueuedManual string // queued manual question, empty if none
	Stats        events.SystemStats
}

// Consciousness is the top-level engine loop.
type Consciousness struct {
	cfg     *config.Config
	runner  Runner
	meter   *energy.Meter
	evolver *dpd.Evolver
	storage Storage
	bus     *events.Bus
	gen     *trigger.Generator
	dreamer llm.Client // used only during sleep

	mu         sync.Mutex
	state      State
	processing bool
	queued     *types.Trigger
	pausedCh   chan struct{} // non-nil while paused; closed on resume
	sleepReq   string        // pending sleep reason, consumed by the loop
	started    bool

	stopCh chan struct{}
	doneCh chan struct{}
	hbDone chan struct{}
	nudge  chan struct{}

	failedCycles    atomic.Int64
	sleepsCompleted atomic.Int64
}

// New wires the loop. runner may be set later via SetRunner because the
// orchestrator needs the scheduler's Gate at construction time.
func New(cfg *config.Config, meter *energy.Meter, evolver *dpd.Evolver,
	storage Storage, bus *events.Bus, gen *trigger.Generator, dreamer llm.Client) *Consciousness {

	return &Consciousness{
		cfg:     cfg,
		meter:   meter,
		evolver: evolver,
		storage: storage,
		bus:     bus,
		gen:     gen,
		dreamer: dreamer,
		state:   StateActive,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		hbDone:  make(chan struct{}),
		nudge:   make(chan struct{}, 1),
	}
}

// SetRunner installs the cycle runner. Must be called before Start.
func (c *Consciousness) SetRunner(r Runner) {
	c.runner = r
}

// Start restores persisted energy and launches the control and heartbeat
// loops. Idempotent against double start.
func (c *Consciousness) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("scheduler already started")
	}
	if c.runner == nil {
		c.mu.Unlock()
		return errors.New("scheduler has no cycle runner")
	}
	c.started = true
	c.mu.Unlock()

	if level, ok, err := c.storage.LoadEnergy(); err != nil {
		logging.Get(logging.CategoryEnergy).Warn("energy restore failed, starting full: %v", err)
	} else if ok {
		c.meter.Restore(level)
	}
	if level := c.meter.Level(); level <= c.cfg.Energy.LowFloor {
		c.setState(StateDormant, "restored below low floor")
		c.bus.Emit(events.Event{Kind: events.KindConsciousnessDormant, ConsciousnessDormant: &events.ConsciousnessDormant{
			Reason:        "restored below low floor",
			CurrentEnergy: level,
		}})
	}

	go c.run()
	go c.heartbeat()
	logging.Boot("consciousness loop started (state=%s energy=%.1f)", c.GetState().State, c.meter.Level())
	return nil
}

// Stop requests shutdown and blocks until both loops exit. The in-flight
// cycle, if any, fails at its next stage gate. Safe before Start: the stop
// is recorded without waiting for loops that never ran.
func (c *Consciousness) Stop() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	select {
	case <-c.stopCh:
		return // already stopping
	default:
	}
	close(c.stopCh)
	if !started {
		return
	}
	c.Resume() // unblock a gate parked on pause
	<-c.doneCh
	<-c.hbDone

	if err := c.storage.SaveEnergy(c.meter.Level()); err != nil {
		logging.Get(logging.CategoryEnergy).Warn("energy persist on stop failed: %v", err)
	}
	logging.Boot("consciousness loop stopped")
}

// Pause holds the engine between stages. The in-flight persona calls finish;
// the next stage gate blocks until Resume.
func (c *Consciousness) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pausedCh == nil {
		c.pausedCh = make(chan struct{})
		logging.Cycle("paused")
	}
}

// Resume releases a paused engine. No-op when not paused.
func (c *Consciousness) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pausedCh != nil {
		close(c.pausedCh)
		c.pausedCh = nil
		logging.Cycle("resumed")
	}
}

// Gate is the stage gate handed to the orchestrator: it blocks while paused
// and fails once stopping. Never cancels in-flight work.
func (c *Consciousness) Gate(ctx context.Context) error {
	for {
		select {
		case <-c.stopCh:
			return ErrStopping
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.mu.Lock()
		ch := c.pausedCh
		c.mu.Unlock()
		if ch == nil {
			return nil
		}

		select {
		case <-ch:
		case <-c.stopCh:
			return ErrStopping
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SubmitManualTrigger parks a user question for the next admitted cycle.
// The queue holds one slot; a newer submission replaces an older one.
func (c *Consciousness) SubmitManualTrigger(question string) types.Trigger {
	t := trigger.Manual(question)

	c.mu.Lock()
	replaced := c.queued != nil
	c.queued = &t
	c.mu.Unlock()

	if replaced {
		logging.Trigger("manual trigger replaced queued question")
	}
	interval := config.Duration(c.cfg.Scheduler.CycleInterval, 45*time.Second)
	c.bus.Emit(events.Event{Kind: events.KindManualTriggerQueued, ManualTriggerQueued: &events.ManualTriggerQueued{
		Question:           question,
		EstimatedNextCycle: time.Now().Add(interval),
	}})

	// Nudge the loop so a manual question does not wait a full interval.
	select {
	case c.nudge <- struct{}{}:
	default:
	}
	return t
}

// EnterSleep requests a sleep session at the next loop iteration. Ignored
// while already sleeping.
func (c *Consciousness) EnterSleep(reason string) {
	c.mu.Lock()
	if c.state == StateSleeping {
		c.mu.Unlock()
		return
	}
	c.sleepReq = reason
	if c.sleepReq == "" {
		c.sleepReq = "requested"
	}
	c.mu.Unlock()

	select {
	case c.nudge <- struct{}{}:
	default:
	}
}

// Wake forces a dormant engine back to active regardless of energy level.
func (c *Consciousness) Wake() {
	c.mu.Lock()
	dormant := c.state == StateDormant
	c.mu.Unlock()
	if !dormant {
		return
	}
	c.setState(StateActive, "manual wake")
	c.bus.Emit(events.Event{Kind: events.KindConsciousnessAwakened, ConsciousnessAwakened: &events.ConsciousnessAwakened{
		CurrentEnergy: c.meter.Level(),
	}})
}

// GetState returns a consistent snapshot for status queries.
func (c *Consciousness) GetState() Snapshot {
	c.mu.Lock()
	snap := Snapshot{
		Running:    c.started,
		State:      c.state,
		Paused:     c.pausedCh != nil,
		Processing: c.processing,
	}
	if c.queued != nil {
		snap.QueuedManual = c.queued.Question
	}
	c.mu.Unlock()

	select {
	case <-c.stopCh:
		snap.Running = false
	default:
	}

	snap.Energy = c.meter.Level()
	snap.EnergyMax = c.meter.Max()
	snap.Weights = c.evolver.Current()
	snap.Stats = c.stats()
	return snap
}

// run is the control loop. It is the only goroutine that admits cycles and
// sleep sessions, which is what makes "one in-flight cycle" structural
// rather than guarded.
func (c *Consciousness) run() {
	defer close(c.doneCh)

	interval := config.Duration(c.cfg.Scheduler.CycleInterval, 45*time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-c.nudge:
		case <-ticker.C:
		}
		c.iterate()
	}
}

// iterate handles one admission opportunity: a pending sleep request wins,
// then dormancy is checked, then a cycle is admitted.
func (c *Consciousness) iterate() {
	c.mu.Lock()
	sleepReason := c.sleepReq
	c.sleepReq = ""
	paused := c.pausedCh != nil
	c.mu.Unlock()

	if sleepReason != "" {
		c.runSleep(sleepReason)
		return
	}
	if paused {
		return
	}

	level := c.meter.Level()
	switch c.currentState() {
	case StateDormant:
		if level < c.cfg.Energy.WakeThreshold {
			logging.EnergyDebug("dormant, energy %.1f below wake threshold %.1f", level, c.cfg.Energy.WakeThreshold)
			return
		}
		c.setState(StateActive, "energy recovered")
		c.bus.Emit(events.Event{Kind: events.KindConsciousnessAwakened, ConsciousnessAwakened: &events.ConsciousnessAwakened{
			CurrentEnergy: level,
		}})
	case StateSleeping:
		return
	default:
		if level <= c.cfg.Energy.LowFloor {
			c.setState(StateDormant, "energy at low floor")
			c.bus.Emit(events.Event{Kind: events.KindConsciousnessDormant, ConsciousnessDormant: &events.ConsciousnessDormant{
				Reason:        "energy depleted",
				CurrentEnergy: level,
			}})
			return
		}
	}

	c.runCycle(c.nextTrigger())
}

// nextTrigger consumes the manual slot if occupied, otherwise draws an
// internal question.
func (c *Consciousness) nextTrigger() types.Trigger {
	c.mu.Lock()
	queued := c.queued
	c.queued = nil
	c.mu.Unlock()

	if queued != nil {
		return *queued
	}
	return c.gen.Next()
}

func (c *Consciousness) runCycle(t types.Trigger) {
	c.setProcessing(true)
	defer c.setProcessing(false)

	result, err := c.runner.Run(context.Background(), t)
	if err != nil {
		if !errors.Is(err, ErrStopping) {
			c.failedCycles.Add(1)
			logging.Get(logging.CategoryCycle).Error("cycle failed: %v", err)
		}
	}

	if result != nil && result.Status != types.CycleRunning {
		c.bus.Emit(events.Event{Kind: events.KindThoughtCycleCompleted, ThoughtCycleCompleted: &events.ThoughtCycleCompleted{
			CycleID:    result.ID,
			Status:     result.Status,
			DPDWeights: c.evolver.Current(),
			Stats:      c.stats(),
		}})
	}

	if err := c.storage.SaveEnergy(c.meter.Level()); err != nil {
		logging.Get(logging.CategoryEnergy).Warn("energy persist failed: %v", err)
	}
}

// heartbeat recovers energy on a fixed tick and flips the dormancy state
// transitions that do not need a cycle to be observed.
func (c *Consciousness) heartbeat() {
	defer close(c.hbDone)

	interval := config.Duration(c.cfg.Energy.HeartbeatInterval, 5*time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
		}

		level := c.meter.Recover(c.cfg.Energy.HeartbeatRecovery)
		if c.currentState() == StateDormant && level >= c.cfg.Energy.WakeThreshold {
			// Nudge the loop; the wake transition itself happens there so
			// state changes stay on one goroutine.
			select {
			case c.nudge <- struct{}{}:
			default:
			}
		}
	}
}

func (c *Consciousness) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Consciousness) setState(s State, reason string) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		logging.Energy("state %s -> %s (%s)", prev, s, reason)
	}
}

func (c *Consciousness) setProcessing(v bool) {
	c.mu.Lock()
	c.processing = v
	c.mu.Unlock()
	c.bus.Emit(events.Event{Kind: events.KindCycleProcessingChanged, CycleProcessingChanged: &events.CycleProcessingChanged{
		IsProcessingCycle: v,
	}})
}

// stats merges persisted counters with the in-memory ones (failed cycles
// are never written to the store).
func (c *Consciousness) stats() events.SystemStats {
	cycles, thoughts, err := c.storage.CycleCounts()
	if err != nil {
		logging.StoreDebug("cycle counts unavailable: %v", err)
	}
	return events.SystemStats{
		TotalCycles:     cycles,
		TotalThoughts:   thoughts,
		FailedCycles:    c.failedCycles.Load(),
		SleepsCompleted: c.sleepsCompleted.Load(),
		CurrentEnergy:   c.meter.Level(),
	}
}
