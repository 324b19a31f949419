// Package energy tracks the engine's finite energy resource. Every thought
// costs energy, heartbeat ticks and sleep restore it, and the level is
// clamped to [0, max] after every mutation.
package energy

import (
	"sync"

	"yui/internal/logging"
)

// DefaultMax is the energy ceiling.
const DefaultMax = 100.0

// Thought cost: a flat base plus a content-length component, capped so a
// single rambling thought cannot drain the battery.
const (
	baseThoughtCost   = 2.0
	perRuneCost       = 0.002
	maxContentSurcost = 2.0
)

// Meter is the mutable energy state. Single-writer discipline: only the
// scheduler mutates it; reads are safe from any goroutine.
type Meter struct {
	mu      sync.RWMutex
	current float64
	max     float64
}

// NewMeter creates a full meter with the given ceiling (0 means DefaultMax).
func NewMeter(max float64) *Meter {
	if max <= 0 {
		max = DefaultMax
	}
	return &Meter{current: max, max: max}
}

// Level returns the current energy.
func (m *Meter) Level() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Max returns the ceiling.
func (m *Meter) Max() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.max
}

// ThoughtCost computes the content-dependent cost of one thought.
func ThoughtCost(content string) float64 {
	sur := perRuneCost * float64(len([]rune(content)))
	if sur > maxContentSurcost {
		sur = maxContentSurcost
	}
	return baseThoughtCost + sur
}

// Consume deducts cost and returns the new level.
func (m *Meter) Consume(cost float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.clamp(m.current - cost)
	logging.EnergyDebug("consumed %.2f -> %.2f/%.0f", cost, m.current, m.max)
	return m.current
}

// Recover adds a recovery amount and returns the new level.
func (m *Meter) Recover(amount float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.clamp(m.current + amount)
	return m.current
}

// Restore sets the level directly (boot-time load from the store).
func (m *Meter) Restore(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.clamp(level)
	logging.Energy("restored level %.2f/%.0f", m.current, m.max)
}

// clamp enforces [0, max]. Out-of-range values are corrected silently;
// the accounting above should never produce them.
func (m *Meter) clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > m.max {
		return m.max
	}
	return v
}
