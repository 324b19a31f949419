// Package growth analyzes the engine's accumulated thought history for
// developmental trends: is confidence rising, are thoughts deepening, which
// categories dominate. Pure computation over a history slice; the store
// supplies the data and the CLI renders the result.
package growth

import (
	"fmt"
	"math"
	"sort"

	"yui/internal/logging"
	"yui/internal/types"
)

// minSamples is the smallest history that supports a trend claim. Below it
// Analyze reports insufficient data rather than a noisy slope.
const minSamples = 15

// maxPatterns bounds the descriptor list so the report stays readable.
const maxPatterns = 8

// Trend is the direction of a least-squares slope, after noise filtering.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Pattern is one observed regularity with a significance weight in [0,1].
type Pattern struct {
	Description  string
	Significance float64
}

// Snapshot is the full growth report.
type Snapshot struct {
	Sufficient bool
	Samples    int

	ConfidenceTrend Trend
	ConfidenceSlope float64 // per-thought change
	MeanConfidence  float64

	DepthTrend Trend
	DepthSlope float64 // per-thought change in rune length
	MeanLength float64

	DominantCategory types.Category
	Patterns         []Pattern
}

// slope magnitudes below these thresholds are reported as stable.
const (
	confidenceNoise = 0.0005
	lengthNoise     = 0.5
)

// Analyze computes a growth snapshot from time-ordered thoughts (oldest
// first). Never errors: too little history yields Sufficient=false.
func Analyze(history []types.Thought) Snapshot {
	snap := Snapshot{Samples: len(history)}
	if len(history) < minSamples {
		logging.GrowthDebug("insufficient history: %d of %d samples", len(history), minSamples)
		return snap
	}
	snap.Sufficient = true

	confidences := make([]float64, len(history))
	lengths := make([]float64, len(history))
	for i, t := range history {
		confidences[i] = t.Confidence
		lengths[i] = float64(len([]rune(t.Content)))
	}

	snap.ConfidenceSlope = leastSquaresSlope(confidences)
	snap.MeanConfidence = mean(confidences)
	snap.ConfidenceTrend = classify(snap.ConfidenceSlope, confidenceNoise)

	snap.DepthSlope = leastSquaresSlope(lengths)
	snap.MeanLength = mean(lengths)
	snap.DepthTrend = classify(snap.DepthSlope, lengthNoise)

	snap.DominantCategory = dominantCategory(history)
	snap.Patterns = detectPatterns(history, snap)

	logging.Growth("analyzed %d thoughts: confidence %s (%.4f/thought), depth %s (%.1f runes/thought)",
		snap.Samples, snap.ConfidenceTrend, snap.ConfidenceSlope, snap.DepthTrend, snap.DepthSlope)
	return snap
}

// leastSquaresSlope fits y = a + b*i over sample index and returns b.
func leastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func mean(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	var sum float64
	for _, y := range ys {
		sum += y
	}
	return sum / float64(len(ys))
}

func classify(slope, noise float64) Trend {
	switch {
	case slope > noise:
		return TrendRising
	case slope < -noise:
		return TrendFalling
	default:
		return TrendStable
	}
}

func dominantCategory(history []types.Thought) types.Category {
	counts := make(map[types.Category]int)
	for _, t := range history {
		counts[t.Category]++
	}
	var best types.Category
	bestN := 0
	for c, n := range counts {
		if n > bestN || (n == bestN && c < best) {
			best, bestN = c, n
		}
	}
	return best
}

// detectPatterns builds up to maxPatterns descriptors, each weighted by how
// strongly the history supports it, sorted by significance.
func detectPatterns(history []types.Thought, snap Snapshot) []Pattern {
	var out []Pattern
	n := float64(len(history))

	// Category concentration.
	counts := make(map[types.Category]int)
	for _, t := range history {
		counts[t.Category]++
	}
	share := float64(counts[snap.DominantCategory]) / n
	if share > 0.3 {
		out = append(out, Pattern{
			Description:  fmt.Sprintf("preoccupied with %s questions (%.0f%% of thoughts)", snap.DominantCategory, share*100),
			Significance: share,
		})
	}

	// Trend descriptors, weighted by slope magnitude over a plausible scale.
	if snap.ConfidenceTrend != TrendStable {
		out = append(out, Pattern{
			Description:  fmt.Sprintf("confidence %s across recent history", snap.ConfidenceTrend),
			Significance: math.Min(1, math.Abs(snap.ConfidenceSlope)/0.005),
		})
	}
	if snap.DepthTrend != TrendStable {
		out = append(out, Pattern{
			Description:  fmt.Sprintf("thought depth %s (mean %.0f runes)", snap.DepthTrend, snap.MeanLength),
			Significance: math.Min(1, math.Abs(snap.DepthSlope)/5),
		})
	}

	// Confidence spread: a narrow band suggests the scorer has stopped
	// discriminating, a wide one suggests volatile reasoning.
	lo, hi := 1.0, 0.0
	for _, t := range history {
		lo = math.Min(lo, t.Confidence)
		hi = math.Max(hi, t.Confidence)
	}
	spread := hi - lo
	if spread < 0.1 {
		out = append(out, Pattern{
			Description:  fmt.Sprintf("confidence stuck in a narrow band (spread %.2f)", spread),
			Significance: 1 - spread*5,
		})
	} else if spread > 0.5 {
		out = append(out, Pattern{
			Description:  fmt.Sprintf("volatile confidence (spread %.2f)", spread),
			Significance: math.Min(1, spread),
		})
	}

	// Per-persona voice balance: one voice dominating the record means the
	// others rarely survive scoring or selection.
	byPersona := make(map[string]int)
	for _, t := range history {
		byPersona[t.PersonaID]++
	}
	for persona, count := range byPersona {
		pshare := float64(count) / n
		if pshare > 0.5 {
			out = append(out, Pattern{
				Description:  fmt.Sprintf("voice %s dominates the record (%.0f%%)", persona, pshare*100),
				Significance: pshare,
			})
		}
	}

	// Interrogative habit: a mind that keeps asking keeps growing.
	asking := 0
	for _, t := range history {
		if containsQuestion(t.Content) {
			asking++
		}
	}
	ashare := float64(asking) / n
	if ashare > 0.6 {
		out = append(out, Pattern{
			Description:  fmt.Sprintf("%.0f%% of thoughts end in further questions", ashare*100),
			Significance: ashare,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Significance != out[j].Significance {
			return out[i].Significance > out[j].Significance
		}
		return out[i].Description < out[j].Description
	})
	if len(out) > maxPatterns {
		out = out[:maxPatterns]
	}
	return out
}

func containsQuestion(s string) bool {
	for _, r := range s {
		if r == '?' {
			return true
		}
	}
	return false
}
