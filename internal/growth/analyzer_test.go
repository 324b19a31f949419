package growth

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"yui/internal/types"
)

func makeHistory(n int, confidence func(i int) float64, length func(i int) int) []types.Thought {
	out := make([]types.Thought, n)
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := range out {
		out[i] = types.Thought{
			ID:         fmt.Sprintf("t%03d", i),
			PersonaID:  "yui",
			Content:    strings.Repeat("a", length(i)),
			Confidence: confidence(i),
			Category:   types.CategoryExistential,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	history := makeHistory(minSamples-1,
		func(i int) float64 { return 0.5 },
		func(i int) int { return 100 })

	got := Analyze(history)
	want := Snapshot{Sufficient: false, Samples: minSamples - 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("insufficient-data snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_RisingConfidence(t *testing.T) {
	history := makeHistory(30,
		func(i int) float64 { return 0.4 + float64(i)*0.01 },
		func(i int) int { return 200 })

	got := Analyze(history)
	if !got.Sufficient {
		t.Fatal("30 samples reported insufficient")
	}
	if got.ConfidenceTrend != TrendRising {
		t.Errorf("trend = %s, want rising (slope %v)", got.ConfidenceTrend, got.ConfidenceSlope)
	}
	if diff := cmp.Diff(0.01, got.ConfidenceSlope, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("slope mismatch:\n%s", diff)
	}
	if got.DepthTrend != TrendStable {
		t.Errorf("constant lengths classified %s", got.DepthTrend)
	}
}

func TestAnalyze_FallingDepth(t *testing.T) {
	history := makeHistory(20,
		func(i int) float64 { return 0.6 },
		func(i int) int { return 1000 - i*40 })

	got := Analyze(history)
	if got.DepthTrend != TrendFalling {
		t.Errorf("depth trend = %s, want falling (slope %v)", got.DepthTrend, got.DepthSlope)
	}
	if got.ConfidenceTrend != TrendStable {
		t.Errorf("flat confidence classified %s", got.ConfidenceTrend)
	}
}

func TestAnalyze_NoiseIsStable(t *testing.T) {
	// Alternating tiny wobble around a flat mean.
	history := makeHistory(40,
		func(i int) float64 {
			if i%2 == 0 {
				return 0.599
			}
			return 0.601
		},
		func(i int) int { return 300 })

	got := Analyze(history)
	if got.ConfidenceTrend != TrendStable {
		t.Errorf("wobble classified %s (slope %v)", got.ConfidenceTrend, got.ConfidenceSlope)
	}
}

func TestAnalyze_DominantCategoryAndPatterns(t *testing.T) {
	history := makeHistory(30,
		func(i int) float64 { return 0.6 },
		func(i int) int { return 300 })
	for i := 20; i < 30; i++ {
		history[i].Category = types.CategoryEthical
	}

	got := Analyze(history)
	if got.DominantCategory != types.CategoryExistential {
		t.Errorf("dominant category = %s, want existential", got.DominantCategory)
	}

	if len(got.Patterns) == 0 {
		t.Fatal("no patterns detected on a concentrated history")
	}
	if len(got.Patterns) > maxPatterns {
		t.Fatalf("%d patterns exceed bound %d", len(got.Patterns), maxPatterns)
	}
	for i, p := range got.Patterns {
		if p.Significance < 0 || p.Significance > 1 {
			t.Errorf("pattern %d significance %v outside [0,1]: %s", i, p.Significance, p.Description)
		}
		if i > 0 && got.Patterns[i-1].Significance < p.Significance {
			t.Error("patterns not sorted by significance")
		}
	}
}

func TestLeastSquaresSlope(t *testing.T) {
	cases := []struct {
		name string
		ys   []float64
		want float64
	}{
		{"perfect line", []float64{1, 2, 3, 4, 5}, 1},
		{"flat", []float64{7, 7, 7, 7}, 0},
		{"descending", []float64{10, 8, 6, 4}, -2},
		{"single sample", []float64{3}, 0},
		{"empty", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := leastSquaresSlope(tc.ys)
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("slope mismatch:\n%s", diff)
			}
		})
	}
}
