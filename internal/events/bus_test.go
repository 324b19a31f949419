package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	b := NewBus()
	defer b.Close()
	sub := b.Subscribe()

	b.Emit(Event{Kind: KindStageChanged, StageChanged: &StageChanged{}})

	select {
	case ev := <-sub:
		assert.Equal(t, KindStageChanged, ev.Kind)
		assert.NotZero(t, ev.Seq)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_SequenceIsMonotonic(t *testing.T) {
	b := NewBus()
	defer b.Close()
	sub := b.Subscribe()

	for i := 0; i < 10; i++ {
		b.Emit(Event{Kind: KindAgentThought, AgentThought: &AgentThought{}})
	}

	var last uint64
	for i := 0; i < 10; i++ {
		ev := <-sub
		assert.Greater(t, ev.Seq, last)
		last = ev.Seq
	}
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBus()
	defer b.Close()
	sub := b.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody reads sub; the buffer fills and further emits must drop.
		for i := 0; i < 500; i++ {
			b.Emit(Event{Kind: KindStageChanged, StageChanged: &StageChanged{}})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emitter blocked on a slow subscriber")
	}
	assert.Equal(t, cap(subscriberBuffer()), len(sub), "buffer should be exactly full")
}

// subscriberBuffer mirrors the Subscribe buffer size without exporting it.
func subscriberBuffer() chan Event { return make(chan Event, 128) }

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	_, open := <-sub
	assert.False(t, open, "unsubscribed channel should be closed")
	assert.Equal(t, 0, b.Stats().SubscriberCount)

	// Double unsubscribe and nil are harmless.
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)
}

func TestBus_Close(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe()
	b.Close()

	_, open := <-sub
	require.False(t, open)

	// Post-close use must not panic.
	b.Emit(Event{Kind: KindStageChanged})
	post := b.Subscribe()
	_, open = <-post
	assert.False(t, open, "subscribe after close should return a closed channel")
	b.Close()
}

func TestKind_Strings(t *testing.T) {
	kinds := []Kind{
		KindStageChanged, KindStageCompleted, KindAgentThought,
		KindTriggerGenerated, KindManualTriggerQueued, KindDPDUpdated,
		KindThoughtCycleCompleted, KindSleepStarted, KindSleepPhaseChanged,
		KindSleepCompleted, KindSleepError, KindConsciousnessDormant,
		KindConsciousnessAwakened, KindCycleProcessingChanged,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		assert.NotContains(t, s, "unknown", "kind %d unnamed", int(k))
		assert.False(t, seen[s], "duplicate kind name %q", s)
		seen[s] = true
	}
	assert.Contains(t, Kind(99).String(), "unknown")
}
