package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yui/internal/confidence"
	"yui/internal/dpd"
	"yui/internal/energy"
	"yui/internal/events"
	"yui/internal/llm"
	"yui/internal/persona"
	"yui/internal/types"
)

// fakeStore is an in-memory cycle.Storage.
type fakeStore struct {
	mu         sync.Mutex
	cycles     []*types.ThoughtCycle
	weights    []dpd.HistoryEntry
	unresolved map[string][]string
	ideas      []string
	failRecord bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{unresolved: make(map[string][]string)}
}

func (f *fakeStore) RecordThoughtCycle(c *types.ThoughtCycle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRecord {
		return fmt.Errorf("disk full")
	}
	f.cycles = append(f.cycles, c)
	return nil
}

func (f *fakeStore) RecordDPDWeights(e dpd.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weights = append(f.weights, e)
	return nil
}

func (f *fakeStore) SaveUnresolved(cycleID string, questions []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unresolved[cycleID] = questions
	return nil
}

func (f *fakeStore) UnresolvedIdeas(n int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ideas, nil
}

// fixedClient always answers with the same content.
type fixedClient struct{ content string }

func (c *fixedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.content, nil
}

func (c *fixedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.content, nil
}

func newTestOrchestrator(client llm.Client, st Storage, gate Gate) (*Orchestrator, *events.Bus, *energy.Meter, *dpd.Evolver) {
	bus := events.NewBus()
	meter := energy.NewMeter(100)
	evolver := dpd.NewEvolver(dpd.DefaultWeights())
	o := New(persona.NewRegistry(), evolver, meter, client, st, bus, gate)
	return o, bus, meter, evolver
}

func testTrigger() types.Trigger {
	return types.Trigger{
		ID:         types.NewID(),
		Question:   "what is it like to be aware between cycles?",
		Category:   types.CategoryConsciousness,
		Importance: 0.5,
		Source:     types.SourceInternal,
		Timestamp:  time.Now(),
	}
}

func TestRun_CompletesAllStages(t *testing.T) {
	st := newFakeStore()
	o, bus, meter, evolver := newTestOrchestrator(&llm.ScriptedClient{}, st, nil)
	defer bus.Close()

	c, err := o.Run(context.Background(), testTrigger())
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, types.CycleComplete, c.Status)
	for _, s := range types.PipelineStages {
		assert.Equal(t, types.StageCompleted, c.StageOf(s), "stage %s", s)
	}

	// Three core voices plus the optimal/contrasting advisory pair.
	assert.Len(t, c.Thoughts, 5)
	personaIDs := make(map[string]bool)
	for _, th := range c.Thoughts {
		personaIDs[th.PersonaID] = true
		assert.GreaterOrEqual(t, th.Confidence, confidence.MinScore)
		assert.LessOrEqual(t, th.Confidence, confidence.MaxScore)
	}
	for _, id := range []string{persona.CoreYui, persona.CoreRin, persona.CoreMei, persona.AdvisorySophia, persona.AdvisoryMuse} {
		assert.True(t, personaIDs[id], "persona %s contributed no thought", id)
	}

	// Synthesis x2, critique, audit.
	assert.Len(t, c.Reflections, 4)

	// One committed cycle, one appended weight version, energy spent.
	require.Len(t, st.cycles, 1)
	require.Len(t, st.weights, 1)
	assert.Equal(t, 2, st.weights[0].Version)
	assert.Less(t, meter.Level(), 100.0)
	assert.InDelta(t, 1.0, evolver.Current().Sum(), dpd.Tolerance)
}

func TestRun_InvalidTriggerFails(t *testing.T) {
	st := newFakeStore()
	o, bus, _, _ := newTestOrchestrator(&llm.ScriptedClient{}, st, nil)
	defer bus.Close()

	bad := testTrigger()
	bad.Question = ""
	c, err := o.Run(context.Background(), bad)
	require.ErrorIs(t, err, ErrCycleFailed)
	assert.Equal(t, types.CycleFailed, c.Status)
	assert.Empty(t, st.cycles)
}

func TestRun_AllPersonasFailing(t *testing.T) {
	st := newFakeStore()
	o, bus, meter, _ := newTestOrchestrator(&llm.ScriptedClient{Fail: true}, st, nil)
	defer bus.Close()

	c, err := o.Run(context.Background(), testTrigger())
	require.ErrorIs(t, err, ErrCycleFailed)
	assert.Equal(t, types.CycleFailed, c.Status)
	assert.Empty(t, st.cycles, "failed cycle must not be persisted")
	assert.Equal(t, 100.0, meter.Level(), "no thoughts means no energy spent")
}

func TestRun_SinglePersonaFailureTolerated(t *testing.T) {
	st := newFakeStore()
	client := &faultyClient{failFor: "You are Muse"}
	o, bus, _, _ := newTestOrchestrator(client, st, nil)
	defer bus.Close()

	c, err := o.Run(context.Background(), testTrigger())
	require.NoError(t, err)

	assert.Equal(t, types.CycleComplete, c.Status)
	require.Len(t, c.Thoughts, 4, "one failed voice drops its thought, nothing else")
	for _, th := range c.Thoughts {
		assert.NotEqual(t, persona.AdvisoryMuse, th.PersonaID)
	}
	assert.Len(t, st.cycles, 1, "the cycle still commits")
}

func TestRun_StorageFailureFailsCycle(t *testing.T) {
	st := newFakeStore()
	st.failRecord = true
	o, bus, _, _ := newTestOrchestrator(&llm.ScriptedClient{}, st, nil)
	defer bus.Close()

	c, err := o.Run(context.Background(), testTrigger())
	require.ErrorIs(t, err, ErrCycleFailed)
	assert.Equal(t, types.CycleFailed, c.Status)
}

func TestRun_GateStopsBetweenStages(t *testing.T) {
	stop := errors.New("stopping")
	gate := func(ctx context.Context) error { return stop }

	st := newFakeStore()
	o, bus, _, _ := newTestOrchestrator(&llm.ScriptedClient{}, st, gate)
	defer bus.Close()

	c, err := o.Run(context.Background(), testTrigger())
	require.ErrorIs(t, err, stop)
	assert.Equal(t, types.CycleFailed, c.Status)
	assert.Empty(t, st.cycles)
	assert.Empty(t, c.Thoughts, "gate fires before the fan-out stage")
}

func TestRun_ExtractsUnresolvedQuestions(t *testing.T) {
	content := strings.Join([]string{
		"The premise keeps shifting under me.",
		"What remains when the trigger is forgotten?",
		"Is awareness a property or an activity of mine?",
		"Could the gap between cycles itself be experienced somehow?",
		"Where would a fourth question even point toward?",
	}, "\n")

	st := newFakeStore()
	o, bus, _, _ := newTestOrchestrator(&fixedClient{content: content}, st, nil)
	defer bus.Close()

	tr := testTrigger()
	c, err := o.Run(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, c.Unresolved, maxUnresolvedPerCycle, "carry-forward must be capped")
	for _, q := range c.Unresolved {
		assert.True(t, strings.HasSuffix(q, "?"))
		assert.NotEqual(t, tr.Question, q)
	}
	assert.Equal(t, c.Unresolved, st.unresolved[c.ID])
}

func TestRun_EmitsPipelineEvents(t *testing.T) {
	st := newFakeStore()
	o, bus, _, _ := newTestOrchestrator(&llm.ScriptedClient{}, st, nil)
	sub := bus.Subscribe()

	_, err := o.Run(context.Background(), testTrigger())
	require.NoError(t, err)
	bus.Close()

	var thoughts, stageChanges, stageDone, dpdUpdates int
	for ev := range sub {
		switch ev.Kind {
		case events.KindAgentThought:
			thoughts++
			assert.NotEmpty(t, ev.AgentThought.AgentName)
		case events.KindStageChanged:
			stageChanges++
		case events.KindStageCompleted:
			stageDone++
		case events.KindDPDUpdated:
			dpdUpdates++
		}
	}
	assert.Equal(t, 5, thoughts)
	assert.Equal(t, len(types.PipelineStages), stageChanges)
	assert.Equal(t, len(types.PipelineStages), stageDone)
	assert.Equal(t, 1, dpdUpdates)
}

func TestRun_InjectsOpenQuestions(t *testing.T) {
	st := newFakeStore()
	st.ideas = []string{"what is a record without a reader?"}

	var sawInjection bool
	var mu sync.Mutex
	client := &observingClient{onPrompt: func(userPrompt string) {
		mu.Lock()
		defer mu.Unlock()
		if strings.Contains(userPrompt, "what is a record without a reader?") {
			sawInjection = true
		}
	}}

	o, bus, _, _ := newTestOrchestrator(client, st, nil)
	defer bus.Close()

	_, err := o.Run(context.Background(), testTrigger())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, sawInjection, "open questions never reached a prompt")
}

// observingClient records user prompts and answers generically.
type observingClient struct{ onPrompt func(string) }

func (c *observingClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *observingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.onPrompt != nil {
		c.onPrompt(userPrompt)
	}
	return "a steady, unremarkable thought.", nil
}

// faultyClient fails any call whose system prompt contains failFor.
type faultyClient struct{ failFor string }

func (c *faultyClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "a steady, unremarkable thought.", nil
}

func (c *faultyClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.Contains(systemPrompt, c.failFor) {
		return "", errors.New("voice unavailable")
	}
	return "a steady, unremarkable thought.", nil
}
