package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"yui/internal/config"
	"yui/internal/events"
	"yui/internal/llm"
	"yui/internal/logging"
	"yui/internal/store"
)

// Sleep phases, in order. Each runs for the configured phase duration; the
// middle phases also do real work against the store and the dreamer.
const (
	phaseDrifting      = "drifting"
	phaseConsolidation = "consolidation"
	phaseDreamweaving  = "dreamweaving"
	phaseIntegration   = "integration"
	phaseAwakening     = "awakening"
)

var sleepPhases = []string{
	phaseDrifting,
	phaseConsolidation,
	phaseDreamweaving,
	phaseIntegration,
	phaseAwakening,
}

// consolidationBatch is how many high-confidence thoughts a session
// promotes toward beliefs.
const consolidationBatch = 5

// beliefThreshold filters which consolidated thoughts become beliefs.
const beliefThreshold = 0.75

// runSleep executes one full sleep session on the loop goroutine. A phase
// error abandons the session: no energy grant, a SleepError event, and the
// session row keeps the phase it died in.
func (c *Consciousness) runSleep(reason string) {
	timer := logging.StartTimer(logging.CategorySleep, "sleep session")
	defer timer.Stop()

	c.setState(StateSleeping, reason)
	c.bus.Emit(events.Event{Kind: events.KindSleepStarted, SleepStarted: &events.SleepStarted{Reason: reason}})

	rec := store.SleepRecord{
		ID:           uuid.NewString(),
		StartedAt:    time.Now(),
		EnergyBefore: c.meter.Level(),
	}
	if err := c.storage.RecordSleepSession(rec); err != nil {
		logging.Get(logging.CategorySleep).Warn("sleep session persist failed: %v", err)
	}

	var dreams []string
	phaseDur := config.Duration(c.cfg.Sleep.PhaseDuration, 3*time.Second)

	for _, phase := range sleepPhases {
		rec.LastPhase = phase
		c.bus.Emit(events.Event{Kind: events.KindSleepPhaseChanged, SleepPhaseChanged: &events.SleepPhaseChanged{
			Phase:    phase,
			Progress: 0,
		}})
		logging.Sleep("phase %s", phase)

		var err error
		switch phase {
		case phaseConsolidation:
			err = c.consolidate()
		case phaseDreamweaving:
			dreams, err = c.dreamweave()
		}
		if err != nil {
			c.abortSleep(rec, phase, err)
			return
		}

		if c.sleepWait(phaseDur, phase) {
			c.abortSleep(rec, phase, ErrStopping)
			return
		}
		c.bus.Emit(events.Event{Kind: events.KindSleepPhaseChanged, SleepPhaseChanged: &events.SleepPhaseChanged{
			Phase:    phase,
			Progress: 100,
		}})
	}

	// The grant lands exactly once, after every phase has completed.
	after := c.meter.Recover(c.cfg.Sleep.EnergyGrant)
	c.sleepsCompleted.Add(1)
	c.setState(StateActive, "sleep completed")

	now := time.Now()
	rec.CompletedAt = &now
	rec.EnergyAfter = &after
	if err := c.storage.RecordSleepSession(rec); err != nil {
		logging.Get(logging.CategorySleep).Warn("sleep completion persist failed: %v", err)
	}
	if err := c.storage.SaveEnergy(after); err != nil {
		logging.Get(logging.CategoryEnergy).Warn("energy persist after sleep failed: %v", err)
	}

	c.bus.Emit(events.Event{Kind: events.KindSleepCompleted, SleepCompleted: &events.SleepCompleted{
		Duration:     now.Sub(rec.StartedAt),
		EnergyBefore: rec.EnergyBefore,
		EnergyAfter:  after,
		Dreams:       dreams,
	}})
	logging.Sleep("session %s completed, energy %.1f -> %.1f, %d dreams",
		rec.ID, rec.EnergyBefore, after, len(dreams))
}

// sleepWait waits out a phase, returning true if Stop interrupted it.
func (c *Consciousness) sleepWait(d time.Duration, phase string) bool {
	// Report mid-phase progress so observers see the session is alive.
	half := time.NewTimer(d / 2)
	defer half.Stop()
	rest := time.NewTimer(d)
	defer rest.Stop()

	select {
	case <-c.stopCh:
		return true
	case <-half.C:
		c.bus.Emit(events.Event{Kind: events.KindSleepPhaseChanged, SleepPhaseChanged: &events.SleepPhaseChanged{
			Phase:    phase,
			Progress: 50,
		}})
	}
	select {
	case <-c.stopCh:
		return true
	case <-rest.C:
		return false
	}
}

func (c *Consciousness) abortSleep(rec store.SleepRecord, phase string, err error) {
	c.setState(StateActive, "sleep aborted")
	rec.Error = err.Error()
	if perr := c.storage.RecordSleepSession(rec); perr != nil {
		logging.Get(logging.CategorySleep).Warn("sleep abort persist failed: %v", perr)
	}
	c.bus.Emit(events.Event{Kind: events.KindSleepError, SleepError: &events.SleepError{
		Err: fmt.Sprintf("phase %s: %v", phase, err),
	}})
	logging.Get(logging.CategorySleep).Error("session %s aborted in %s: %v", rec.ID, phase, err)
}

// consolidate promotes the session's most confident thoughts into beliefs.
// Idempotent: beliefs are keyed by statement, so re-consolidating the same
// thought is a no-op in the store.
func (c *Consciousness) consolidate() error {
	thoughts, err := c.storage.SignificantThoughts(consolidationBatch)
	if err != nil {
		return fmt.Errorf("load significant thoughts: %w", err)
	}

	promoted := 0
	for _, t := range thoughts {
		if t.Confidence < beliefThreshold {
			continue
		}
		statement := firstSentence(t.Content)
		if statement == "" {
			continue
		}
		if err := c.storage.RecordBelief(statement, t.Confidence); err != nil {
			return fmt.Errorf("record belief: %w", err)
		}
		promoted++
	}
	logging.SleepDebug("consolidation promoted %d of %d thoughts", promoted, len(thoughts))
	return nil
}

// dreamweave asks the dreamer to recombine recent significant thoughts into
// short dream fragments. A missing dreamer client is not an error; the
// session just dreams nothing.
func (c *Consciousness) dreamweave() ([]string, error) {
	if c.dreamer == nil {
		return nil, nil
	}
	thoughts, err := c.storage.SignificantThoughts(consolidationBatch)
	if err != nil {
		return nil, fmt.Errorf("load thoughts for dreaming: %w", err)
	}
	if len(thoughts) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("These thoughts surfaced recently:\n\n")
	for _, t := range thoughts {
		sb.WriteString("- " + firstSentence(t.Content) + "\n")
	}
	sb.WriteString("\nWeave them into two or three short dream fragments, one per line. Dreams distort and recombine; they do not summarize.")

	ctx, cancel := context.WithTimeout(context.Background(), config.Duration(c.cfg.LLM.Timeout, 90*time.Second))
	defer cancel()

	res := llm.Execute(ctx, c.dreamer, sb.String(), "")
	if !res.Success {
		return nil, fmt.Errorf("dream generation: %w", res.Err)
	}

	var dreams []string
	for _, line := range strings.Split(res.Content, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			dreams = append(dreams, line)
		}
	}
	return dreams, nil
}

// firstSentence trims a thought down to its leading claim.
func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if r == '.' || r == '!' || r == '\n' {
			return strings.TrimSpace(s[:i+1])
		}
	}
	if len([]rune(s)) > 200 {
		return string([]rune(s)[:200])
	}
	return s
}
