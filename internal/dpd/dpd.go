// Package dpd maintains the Dynamic Prime Directive weights: three
// normalized priorities (empathy, coherence, dissonance) evolved after every
// thought cycle and kept as an append-only, versioned history.
package dpd

import (
	"fmt"
	"math"
	"sync"
	"time"

	"yui/internal/logging"
	"yui/internal/types"
)

// Tolerance is the permitted drift of the weight sum from 1.
const Tolerance = 1e-9

// maxPerturbation bounds how far a single update can move one component.
const maxPerturbation = 0.08

// Weights are the three prime-directive priorities. Invariant after every
// update: each component in [0,1] and Empathy+Coherence+Dissonance == 1
// within Tolerance.
type Weights struct {
	Empathy    float64 `yaml:"empathy" json:"empathy"`
	Coherence  float64 `yaml:"coherence" json:"coherence"`
	Dissonance float64 `yaml:"dissonance" json:"dissonance"`
}

// DefaultWeights is the baseline used at first boot and after a degenerate
// collapse (the 33/33/34 split keeps the sum exactly 1).
func DefaultWeights() Weights {
	return Weights{Empathy: 0.33, Coherence: 0.33, Dissonance: 0.34}
}

// Sum returns the component total.
func (w Weights) Sum() float64 {
	return w.Empathy + w.Coherence + w.Dissonance
}

func (w Weights) String() string {
	return fmt.Sprintf("empathy=%.3f coherence=%.3f dissonance=%.3f", w.Empathy, w.Coherence, w.Dissonance)
}

// HistoryEntry is one versioned weight snapshot.
type HistoryEntry struct {
	Version         int
	Weights         Weights
	Timestamp       time.Time
	TriggerCategory types.Category
}

// Signals drive one weight update. All fields are in [0,1]; zero values
// leave their component untouched.
type Signals struct {
	// AuditAlignment is how well the cycle's audit judged the thoughts to
	// align with empathic values. Raises empathy above 0.5, lowers it below.
	AuditAlignment float64
	// Novelty is how much new ground the synthesis covered. High novelty
	// trades coherence for dissonance.
	Novelty float64
	// Tension is the amount of unresolved contradiction between personas.
	// Feeds the dissonance component directly.
	Tension float64

	TriggerCategory types.Category
}

// Evolver owns the current weights and their history.
// Single-writer: only the scheduler/orchestrator calls Update; reads are
// safe from any goroutine.
type Evolver struct {
	mu      sync.RWMutex
	current Weights
	history []HistoryEntry
}

// NewEvolver starts from the given weights (version 1).
// A zero-value Weights argument falls back to the default baseline.
func NewEvolver(initial Weights) *Evolver {
	if initial.Sum() < Tolerance {
		initial = DefaultWeights()
	}
	initial = renormalize(initial)
	e := &Evolver{current: initial}
	e.history = append(e.history, HistoryEntry{
		Version:   1,
		Weights:   initial,
		Timestamp: time.Now(),
	})
	return e
}

// Current returns the latest weights.
func (e *Evolver) Current() Weights {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Version returns the latest history version.
func (e *Evolver) Version() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history[len(e.history)-1].Version
}

// Update applies a bounded perturbation derived from the cycle's signals,
// renormalizes, and appends a new history version.
func (e *Evolver) Update(sig Signals) Weights {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.current

	// Each signal nudges its component toward the signal's direction.
	// 0.5 is neutral; distance from neutral scales the step.
	if sig.AuditAlignment > 0 {
		w.Empathy += clampDelta((sig.AuditAlignment - 0.5) * 2 * maxPerturbation)
	}
	if sig.Novelty > 0 {
		shift := clampDelta((sig.Novelty - 0.5) * 2 * maxPerturbation)
		w.Coherence -= shift
		w.Dissonance += shift
	}
	if sig.Tension > 0 {
		w.Dissonance += clampDelta(sig.Tension * maxPerturbation)
	}

	w.Empathy = clamp01(w.Empathy)
	w.Coherence = clamp01(w.Coherence)
	w.Dissonance = clamp01(w.Dissonance)

	if w.Sum() < Tolerance {
		// Degenerate collapse; reset rather than divide by zero.
		logging.Get(logging.CategoryDPD).Warn("weight vector collapsed to zero, resetting to baseline")
		w = DefaultWeights()
	} else {
		w = renormalize(w)
	}

	e.current = w
	entry := HistoryEntry{
		Version:         e.history[len(e.history)-1].Version + 1,
		Weights:         w,
		Timestamp:       time.Now(),
		TriggerCategory: sig.TriggerCategory,
	}
	e.history = append(e.history, entry)

	logging.DPD("v%d %s (category=%s)", entry.Version, w, sig.TriggerCategory)
	return w
}

// SampleStrategy selects how History thins the series for consumers.
type SampleStrategy string

const (
	// SampleAll returns up to limit most recent entries in version order.
	SampleAll SampleStrategy = "all"
	// SampleTail returns exactly the last limit entries.
	SampleTail SampleStrategy = "tail"
	// SampleStride returns limit entries evenly strided across the series.
	SampleStride SampleStrategy = "stride"
)

// History returns entries by limit and strategy, strictly version-ordered.
// limit <= 0 means everything.
func (e *Evolver) History(limit int, strategy SampleStrategy) []HistoryEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.history)
	if limit <= 0 || limit >= n {
		out := make([]HistoryEntry, n)
		copy(out, e.history)
		return out
	}

	switch strategy {
	case SampleStride:
		if limit == 1 {
			return []HistoryEntry{e.history[n-1]}
		}
		out := make([]HistoryEntry, 0, limit)
		step := float64(n-1) / float64(limit-1)
		for i := 0; i < limit; i++ {
			out = append(out, e.history[int(math.Round(float64(i)*step))])
		}
		return out
	default: // SampleAll, SampleTail
		out := make([]HistoryEntry, limit)
		copy(out, e.history[n-limit:])
		return out
	}
}

// Restore replaces the current state from persisted history.
// Used at boot to continue a prior run.
func (e *Evolver) Restore(entries []HistoryEntry) {
	if len(entries) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append([]HistoryEntry(nil), entries...)
	e.current = entries[len(entries)-1].Weights
}

func renormalize(w Weights) Weights {
	sum := w.Sum()
	return Weights{
		Empathy:    w.Empathy / sum,
		Coherence:  w.Coherence / sum,
		Dissonance: w.Dissonance / sum,
	}
}

func clampDelta(d float64) float64 {
	if d > maxPerturbation {
		return maxPerturbation
	}
	if d < -maxPerturbation {
		return -maxPerturbation
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
