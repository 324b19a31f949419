package energy

import (
	"strings"
	"testing"
)

func TestThoughtCost(t *testing.T) {
	t.Run("empty content costs the base", func(t *testing.T) {
		if got := ThoughtCost(""); got != baseThoughtCost {
			t.Errorf("ThoughtCost(\"\") = %v, want %v", got, baseThoughtCost)
		}
	})

	t.Run("content adds per-rune cost", func(t *testing.T) {
		got := ThoughtCost(strings.Repeat("a", 500))
		want := baseThoughtCost + 500*perRuneCost
		if got != want {
			t.Errorf("ThoughtCost(500 runes) = %v, want %v", got, want)
		}
	})

	t.Run("surcharge is capped", func(t *testing.T) {
		got := ThoughtCost(strings.Repeat("a", 100000))
		want := baseThoughtCost + maxContentSurcost
		if got != want {
			t.Errorf("ThoughtCost(huge) = %v, want capped %v", got, want)
		}
	})

	t.Run("runes counted, not bytes", func(t *testing.T) {
		ascii := ThoughtCost(strings.Repeat("a", 100))
		multi := ThoughtCost(strings.Repeat("思", 100))
		if ascii != multi {
			t.Errorf("multibyte content costed differently: %v vs %v", ascii, multi)
		}
	})
}

func TestMeter_ConsumeAndRecover(t *testing.T) {
	m := NewMeter(100)

	if got := m.Consume(30); got != 70 {
		t.Fatalf("Consume(30) = %v, want 70", got)
	}
	if got := m.Recover(10); got != 80 {
		t.Fatalf("Recover(10) = %v, want 80", got)
	}
}

func TestMeter_ClampsToRange(t *testing.T) {
	m := NewMeter(100)

	if got := m.Consume(500); got != 0 {
		t.Errorf("over-consume left level %v, want 0", got)
	}
	if got := m.Recover(500); got != 100 {
		t.Errorf("over-recover left level %v, want 100", got)
	}
}

func TestMeter_Restore(t *testing.T) {
	m := NewMeter(100)
	m.Restore(42.5)
	if got := m.Level(); got != 42.5 {
		t.Errorf("Restore(42.5) then Level() = %v", got)
	}
	m.Restore(-10)
	if got := m.Level(); got != 0 {
		t.Errorf("negative restore left %v, want 0", got)
	}
	m.Restore(1000)
	if got := m.Level(); got != 100 {
		t.Errorf("oversized restore left %v, want 100", got)
	}
}

func TestNewMeter_DefaultMax(t *testing.T) {
	m := NewMeter(0)
	if m.Max() != DefaultMax {
		t.Errorf("zero max not defaulted: %v", m.Max())
	}
	if m.Level() != DefaultMax {
		t.Errorf("meter does not start full: %v", m.Level())
	}
}
