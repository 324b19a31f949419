package main

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"yui/internal/config"
	"yui/internal/cycle"
	"yui/internal/dpd"
	"yui/internal/energy"
	"yui/internal/events"
	"yui/internal/llm"
	"yui/internal/persona"
	"yui/internal/scheduler"
	"yui/internal/store"
	"yui/internal/trigger"
)

// engine bundles the fully wired runtime so commands share one bootstrap.
type engine struct {
	cfg     *config.Config
	st      *store.Store
	bus     *events.Bus
	meter   *energy.Meter
	evolver *dpd.Evolver
	reg     *persona.Registry
	slots   *llm.SlotScheduler
	orch    *cycle.Orchestrator
	sched   *scheduler.Consciousness
	watcher *config.Watcher
}

// newEngine loads config, opens the store, restores persisted state and
// wires the pipeline. withScheduler controls whether the control loop is
// constructed (ask runs a single cycle without it).
func newEngine(withScheduler bool) (*engine, error) {
	cfg, err := config.Load(config.Path(home))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dbPath := cfg.Memory.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(home, dbPath)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	e := &engine{
		cfg:   cfg,
		st:    st,
		bus:   events.NewBus(),
		meter: energy.NewMeter(cfg.Energy.Max),
		reg:   persona.NewRegistry(),
	}

	if err := persona.Validate(e.reg); err != nil {
		st.Close()
		return nil, fmt.Errorf("persona tables: %w", err)
	}

	// Continue the prior run's weight history when one exists.
	history, err := st.QueryDPDHistory(0, dpd.SampleAll)
	if err != nil {
		st.Close()
		return nil, err
	}
	e.evolver = dpd.NewEvolver(dpd.DefaultWeights())
	e.evolver.Restore(history)

	client, err := e.buildClient()
	if err != nil {
		st.Close()
		return nil, err
	}

	var gate cycle.Gate
	if withScheduler {
		gen := trigger.NewGenerator(st)
		e.sched = scheduler.New(cfg, e.meter, e.evolver, st, e.bus, gen, client)
		gate = e.sched.Gate
	}

	e.orch = cycle.New(e.reg, e.evolver, e.meter, client, st, e.bus, gate)
	if e.sched != nil {
		e.sched.SetRunner(e.orch)
	}

	if w, err := config.NewWatcher(home); err == nil {
		if err := w.Start(); err == nil {
			e.watcher = w
		}
	}
	return e, nil
}

// buildClient constructs the generation client behind the slot scheduler.
func (e *engine) buildClient() (llm.Client, error) {
	var base llm.Client
	switch {
	case offline || e.cfg.LLM.Provider == "scripted":
		base = &llm.ScriptedClient{}
	default:
		if e.cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("no API key: set GEMINI_API_KEY or llm.api_key, or pass --offline")
		}
		gcfg := llm.DefaultGeminiConfig(e.cfg.LLM.APIKey)
		gcfg.Model = e.cfg.LLM.Model
		gcfg.Timeout = config.Duration(e.cfg.LLM.Timeout, gcfg.Timeout)
		gc, err := llm.NewGeminiClient(context.Background(), gcfg)
		if err != nil {
			return nil, err
		}
		base = gc
	}

	e.slots = llm.NewSlotScheduler(e.cfg.LLM.MaxConcurrent)
	return &llm.ScheduledClient{
		Scheduler:  e.slots,
		Caller:     "persona",
		Client:     base,
		MaxRetries: e.cfg.LLM.MaxRetries,
	}, nil
}

func (e *engine) Close() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	if e.slots != nil {
		e.slots.Stop()
	}
	e.bus.Close()
	if err := e.st.Close(); err != nil {
		logger.Warn("store close", zap.Error(err))
	}
}
