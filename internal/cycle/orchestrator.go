// Package cycle runs one thought cycle through the staged pipeline:
// trigger intake, concurrent persona consultation, reflection, critique,
// audit, prime-directive update, persistence and carry-forward. Stages are
// strictly ordered; within a stage persona calls run concurrently and are
// joined before the stage completes.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"yui/internal/confidence"
	"yui/internal/dpd"
	"yui/internal/energy"
	"yui/internal/events"
	"yui/internal/llm"
	"yui/internal/logging"
	"yui/internal/persona"
	"yui/internal/types"
)

// ErrCycleFailed marks a cycle that produced no usable thoughts or could
// not be committed. The scheduler logs it and admits the next cycle; it is
// never fatal to the control loop.
var ErrCycleFailed = errors.New("thought cycle failed")

// maxUnresolvedPerCycle caps the carry-forward set so one rambling cycle
// cannot flood future context injection.
const maxUnresolvedPerCycle = 3

// contextIdeas is how many open questions are injected into prompts.
const contextIdeas = 3

// Storage is the slice of the persistence collaborator the orchestrator
// needs.
type Storage interface {
	RecordThoughtCycle(c *types.ThoughtCycle) error
	RecordDPDWeights(e dpd.HistoryEntry) error
	SaveUnresolved(cycleID string, questions []string) error
	UnresolvedIdeas(n int) ([]string, error)
}

// Gate is consulted before each stage begins. It blocks while the engine
// is paused and returns an error when the engine is stopping. In-flight
// persona calls are never cancelled by the gate.
type Gate func(ctx context.Context) error

// Orchestrator drives one cycle at a time. The scheduler guarantees mutual
// exclusion; the orchestrator itself holds no cross-cycle state beyond its
// collaborators.
type Orchestrator struct {
	registry *persona.Registry
	evolver  *dpd.Evolver
	meter    *energy.Meter
	client   llm.Client
	storage  Storage
	bus      *events.Bus
	gate     Gate

	// scorers holds one evaluator per persona, each carrying an identity
	// validator over the other personas' names.
	scorers map[string]*confidence.Evaluator
}

// New wires an orchestrator. gate may be nil (no pause/stop gating).
func New(registry *persona.Registry, evolver *dpd.Evolver, meter *energy.Meter,
	client llm.Client, storage Storage, bus *events.Bus, gate Gate) *Orchestrator {

	o := &Orchestrator{
		registry: registry,
		evolver:  evolver,
		meter:    meter,
		client:   client,
		storage:  storage,
		bus:      bus,
		gate:     gate,
		scorers:  make(map[string]*confidence.Evaluator),
	}

	// Per-persona scorers: a voice may name itself, never a sibling.
	all := append(registry.CoreIDs(), registry.AdvisoryIDs()...)
	for _, id := range all {
		var others []string
		for _, otherID := range all {
			if otherID == id {
				continue
			}
			if p, ok := registry.Get(otherID); ok {
				others = append(others, p.DisplayName)
			}
		}
		o.scorers[id] = confidence.New(confidence.IdentityMisuse(others))
	}
	return o
}

// Run executes the full pipeline for one trigger. A returned ErrCycleFailed
// means the cycle is failed and was not persisted; any other error came
// from gating (stop).
func (o *Orchestrator) Run(ctx context.Context, trigger types.Trigger) (*types.ThoughtCycle, error) {
	timer := logging.StartTimer(logging.CategoryCycle, "cycle.Run")
	defer timer.Stop()

	// S0: trigger intake. An invalid trigger is fatal to the cycle.
	c := types.NewThoughtCycle(trigger)
	o.enterStage(c, types.StageTriggerIntake)
	if err := trigger.Validate(); err != nil {
		logging.Get(logging.CategoryCycle).Error("cycle %s: invalid trigger: %v", c.ID, err)
		c.Status = types.CycleFailed
		return c, fmt.Errorf("%w: %v", ErrCycleFailed, err)
	}
	o.bus.Emit(events.Event{Kind: events.KindTriggerGenerated, TriggerGenerated: &events.TriggerGenerated{
		Trigger: trigger,
		Source:  trigger.Source,
	}})
	openQuestions := o.openQuestions()
	o.completeStage(c, types.StageTriggerIntake)

	// S1: individual persona thoughts, concurrent fan-out with a join.
	if err := o.checkGate(ctx); err != nil {
		c.Status = types.CycleFailed
		return c, err
	}
	o.enterStage(c, types.StageIndividual)
	o.runIndividual(ctx, c, openQuestions)
	if len(c.Thoughts) == 0 {
		logging.Get(logging.CategoryCycle).Error("cycle %s: all persona calls failed", c.ID)
		c.Status = types.CycleFailed
		return c, fmt.Errorf("%w: no thoughts produced", ErrCycleFailed)
	}
	o.completeStage(c, types.StageIndividual)

	// S2-S4: derived artifacts, same non-fatal partial-failure policy.
	for _, stage := range []types.Stage{types.StageReflection, types.StageCritique, types.StageAudit} {
		if err := o.checkGate(ctx); err != nil {
			c.Status = types.CycleFailed
			return c, err
		}
		o.enterStage(c, stage)
		o.runDerived(ctx, c, stage)
		o.completeStage(c, stage)
	}

	// S5: evolve the prime-directive weights from this cycle's signals.
	if err := o.checkGate(ctx); err != nil {
		c.Status = types.CycleFailed
		return c, err
	}
	o.enterStage(c, types.StageWeightUpdate)
	weights := o.evolver.Update(o.deriveSignals(c))
	o.bus.Emit(events.Event{Kind: events.KindDPDUpdated, DPDUpdated: &events.DPDUpdated{
		Weights: weights,
		Version: o.evolver.Version(),
	}})
	o.completeStage(c, types.StageWeightUpdate)

	// S6: commit. A storage failure fails the cycle; the transaction
	// guarantees nothing partial lands.
	if err := o.checkGate(ctx); err != nil {
		c.Status = types.CycleFailed
		return c, err
	}
	o.enterStage(c, types.StageRecord)
	c.Status = types.CycleComplete
	if err := o.storage.RecordThoughtCycle(c); err != nil {
		logging.Get(logging.CategoryCycle).Error("cycle %s: persist failed: %v", c.ID, err)
		c.Status = types.CycleFailed
		return c, fmt.Errorf("%w: %v", ErrCycleFailed, err)
	}
	history := o.evolver.History(1, dpd.SampleTail)
	if len(history) > 0 {
		if err := o.storage.RecordDPDWeights(history[len(history)-1]); err != nil {
			logging.Get(logging.CategoryStore).Error("cycle %s: dpd persist failed: %v", c.ID, err)
		}
	}
	o.completeStage(c, types.StageRecord)

	// U: carry forward unresolved sub-questions for future context.
	o.enterStage(c, types.StageCarryForward)
	c.Unresolved = o.extractUnresolved(c)
	if len(c.Unresolved) > 0 {
		if err := o.storage.SaveUnresolved(c.ID, c.Unresolved); err != nil {
			logging.Get(logging.CategoryStore).Error("cycle %s: unresolved persist failed: %v", c.ID, err)
		}
	}
	o.completeStage(c, types.StageCarryForward)

	logging.Cycle("cycle %s completed: %d thoughts, %d reflections, %d carried forward",
		c.ID, len(c.Thoughts), len(c.Reflections), len(c.Unresolved))
	return c, nil
}

// runIndividual fans out to the three core personas plus the two advisory
// personas selected for the trigger's category. The join waits for every
// call to settle; a persona failure just means one missing thought.
func (o *Orchestrator) runIndividual(ctx context.Context, c *types.ThoughtCycle, openQuestions []string) {
	sel := persona.Select(c.Trigger.Category, c.Trigger.Question)
	ids := append(o.registry.CoreIDs(), sel.Optimal, sel.Contrasting)

	weights := o.evolver.Current()
	userPrompt := o.buildQuestionPrompt(c.Trigger, openQuestions)

	var mu sync.Mutex
	thoughts := make([]types.Thought, 0, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		personaID := id
		g.Go(func() error {
			systemPrompt, err := o.registry.SystemPrompt(personaID, weights)
			if err != nil {
				logging.Get(logging.CategoryPersona).Error("cycle %s: %v", c.ID, err)
				return nil
			}
			res := llm.Execute(gctx, o.client, userPrompt, systemPrompt)
			if !res.Success {
				// Non-fatal: this persona contributes no thought.
				logging.Get(logging.CategoryCycle).Warn("cycle %s: persona %s failed after %v: %v",
					c.ID, personaID, res.Duration, res.Err)
				return nil
			}
			mu.Lock()
			thoughts = append(thoughts, o.newThought(c, personaID, res.Content))
			mu.Unlock()
			return nil
		})
	}
	// Persona closures never return errors; Wait is purely the barrier.
	_ = g.Wait()

	// Join is the single writer for shared state: energy accounting and
	// event emission happen here, not in the persona goroutines.
	for _, t := range thoughts {
		c.Thoughts = append(c.Thoughts, t)
		o.meter.Consume(energy.ThoughtCost(t.Content))

		p, _ := o.registry.Get(t.PersonaID)
		o.bus.Emit(events.Event{Kind: events.KindAgentThought, AgentThought: &events.AgentThought{
			AgentName:  p.DisplayName,
			Thought:    t.Content,
			Confidence: t.Confidence,
			YuiAgent:   p.Core,
		}})
	}
}

// runDerived executes one of the S2-S4 stages. Each stage consults a small
// fixed set of voices concurrently over the S1 thought set; failures leave
// the stage with fewer (possibly zero) artifacts, never fail the cycle.
func (o *Orchestrator) runDerived(ctx context.Context, c *types.ThoughtCycle, stage types.Stage) {
	var (
		kind     types.ReflectionKind
		personas []string
	)
	switch stage {
	case types.StageReflection:
		kind = types.ReflectionSynthesis
		sel := persona.Select(c.Trigger.Category, c.Trigger.Question)
		personas = []string{persona.CoreYui, sel.Contrasting}
	case types.StageCritique:
		kind = types.ReflectionCritique
		personas = []string{persona.CoreRin}
	case types.StageAudit:
		kind = types.ReflectionAudit
		personas = []string{persona.CoreMei}
	default:
		return
	}

	weights := o.evolver.Current()
	userPrompt := o.buildDerivedPrompt(c, kind)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range personas {
		personaID := id
		g.Go(func() error {
			systemPrompt, err := o.registry.SystemPrompt(personaID, weights)
			if err != nil {
				return nil
			}
			res := llm.Execute(gctx, o.client, userPrompt, systemPrompt)
			if !res.Success {
				logging.Get(logging.CategoryCycle).Warn("cycle %s: %s by %s failed: %v",
					c.ID, kind, personaID, res.Err)
				return nil
			}
			score := o.score(personaID, res.Content)
			mu.Lock()
			c.Reflections = append(c.Reflections, types.Reflection{
				ID:        types.NewID(),
				Kind:      kind,
				PersonaID: personaID,
				Content:   res.Content,
				Score:     score,
				CycleRef:  c.ID,
				Timestamp: time.Now(),
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) newThought(c *types.ThoughtCycle, personaID, content string) types.Thought {
	return types.Thought{
		ID:         types.NewID(),
		PersonaID:  personaID,
		Content:    content,
		Confidence: o.score(personaID, content),
		Category:   c.Trigger.Category,
		TriggerRef: c.Trigger.ID,
		Timestamp:  time.Now(),
		Tags:       []string{string(c.Trigger.Category)},
	}
}

func (o *Orchestrator) score(personaID, content string) float64 {
	if s, ok := o.scorers[personaID]; ok {
		return s.Score(content)
	}
	return confidence.New().Score(content)
}

// deriveSignals turns the cycle's artifacts into weight-evolution signals.
func (o *Orchestrator) deriveSignals(c *types.ThoughtCycle) dpd.Signals {
	sig := dpd.Signals{TriggerCategory: c.Trigger.Category}

	var synthSum, synthN, auditSum, auditN float64
	for _, r := range c.Reflections {
		switch r.Kind {
		case types.ReflectionSynthesis:
			synthSum += r.Score
			synthN++
		case types.ReflectionAudit:
			auditSum += r.Score
			auditN++
		}
	}
	if synthN > 0 {
		sig.Novelty = synthSum / synthN
	}
	if auditN > 0 {
		sig.AuditAlignment = auditSum / auditN
	}

	// Tension: spread of confidence across the consulted voices.
	if len(c.Thoughts) > 1 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, t := range c.Thoughts {
			lo = math.Min(lo, t.Confidence)
			hi = math.Max(hi, t.Confidence)
		}
		sig.Tension = hi - lo
	}
	return sig
}

// extractUnresolved pulls sub-questions the cycle raised but did not
// answer: interrogative lines in thoughts and reflections that are not the
// trigger question itself.
func (o *Orchestrator) extractUnresolved(c *types.ThoughtCycle) []string {
	seen := map[string]bool{strings.TrimSpace(c.Trigger.Question): true}
	var out []string

	collect := func(content string) {
		for _, line := range strings.Split(content, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasSuffix(line, "?") || len(line) < 12 {
				continue
			}
			if seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, line)
		}
	}
	for _, t := range c.Thoughts {
		collect(t.Content)
	}
	for _, r := range c.Reflections {
		collect(r.Content)
	}

	if len(out) > maxUnresolvedPerCycle {
		out = out[:maxUnresolvedPerCycle]
	}
	return out
}

func (o *Orchestrator) openQuestions() []string {
	ideas, err := o.storage.UnresolvedIdeas(contextIdeas)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("context injection skipped: %v", err)
		return nil
	}
	return ideas
}

func (o *Orchestrator) checkGate(ctx context.Context) error {
	if o.gate == nil {
		return nil
	}
	return o.gate(ctx)
}

func (o *Orchestrator) enterStage(c *types.ThoughtCycle, s types.Stage) {
	c.Stages[s] = types.StageActive
	o.bus.Emit(events.Event{Kind: events.KindStageChanged, StageChanged: &events.StageChanged{Stage: s}})
	logging.CycleDebug("cycle %s: stage %s (%s) active", c.ID, s, s.Name())
}

func (o *Orchestrator) completeStage(c *types.ThoughtCycle, s types.Stage) {
	c.Stages[s] = types.StageCompleted
	o.bus.Emit(events.Event{Kind: events.KindStageCompleted, StageCompleted: &events.StageCompleted{
		Stage: s,
		Name:  s.Name(),
	}})
}
