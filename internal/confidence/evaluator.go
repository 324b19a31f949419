// Package confidence scores generated thought text with a bounded additive
// heuristic. Scores always land in [MinScore, MaxScore]; the evaluator is
// pure, total and never panics on degenerate input.
package confidence

import (
	"strings"
)

// Canonical score bounds. Two bound variants circulated historically; the
// [0.05, 0.95] clamp is the authoritative one: a heuristic should neither
// fully trust nor fully dismiss a thought.
const (
	MinScore  = 0.05
	MaxScore  = 0.95
	BaseScore = 0.5
)

// Length bands (runes). The sweet spot rewards thoughts substantial enough
// to carry an idea but short enough to stay one idea.
const (
	sweetSpotMin = 100
	sweetSpotMax = 800
	wideBandMin  = 40
	wideBandMax  = 1200

	sweetSpotBonus = 0.2
	wideBandBonus  = 0.1
)

// Lexical bonuses.
const (
	perDepthTerm = 0.05
	depthCap     = 0.15

	perConnective = 0.04
	connectiveCap = 0.12

	interrogativeBonus = 0.05
	identityPenalty    = 0.3
)

// depthTerms signal reflective/philosophical content.
var depthTerms = []string{
	"consciousness",
	"existence",
	"awareness",
	"meaning",
	"perception",
	"paradox",
	"emergence",
	"identity",
	"experience",
	"uncertainty",
}

// connectives are discourse markers of actual reasoning.
var connectives = []string{
	"because",
	"therefore",
	"however",
	"although",
	"yet ",
	"which means",
	"it follows",
	"on the other hand",
}

// Validator inspects generated text and reports a violation. Validators are
// pluggable so new personas or constraints never require touching the
// scorer itself.
type Validator func(text string) (ok bool, reason string)

// IdentityMisuse returns a validator that fails when a persona's output
// claims to be one of the other named voices.
func IdentityMisuse(others []string) Validator {
	patterns := make([]string, 0, len(others)*2)
	for _, name := range others {
		n := strings.ToLower(name)
		if n == "" {
			continue
		}
		patterns = append(patterns, "i am "+n, "as "+n+",")
	}
	return func(text string) (bool, string) {
		lc := strings.ToLower(text)
		for _, p := range patterns {
			if strings.Contains(lc, p) {
				return false, "persona claims another identity: " + p
			}
		}
		return true, ""
	}
}

// Evaluator scores text. Zero value is usable; validators are optional.
type Evaluator struct {
	validators []Validator
}

// New creates an evaluator with the given validators.
func New(validators ...Validator) *Evaluator {
	return &Evaluator{validators: validators}
}

// Score computes the bounded heuristic confidence for text.
// Empty or degenerate input earns the base score (clamped); no input can
// cause an error.
func (e *Evaluator) Score(text string) float64 {
	score := BaseScore

	runes := len([]rune(text))
	switch {
	case runes >= sweetSpotMin && runes <= sweetSpotMax:
		score += sweetSpotBonus
	case runes >= wideBandMin && runes <= wideBandMax:
		score += wideBandBonus
	}

	lc := strings.ToLower(text)

	score += capped(countAny(lc, depthTerms)*perDepthTerm, depthCap)
	score += capped(countAny(lc, connectives)*perConnective, connectiveCap)

	if strings.Contains(text, "?") || strings.Contains(lc, "i wonder") {
		score += interrogativeBonus
	}

	for _, v := range e.validators {
		if ok, _ := v(text); !ok {
			score -= identityPenalty
			break
		}
	}

	return clamp(score)
}

func countAny(lc string, terms []string) float64 {
	var n int
	for _, t := range terms {
		n += strings.Count(lc, t)
	}
	return float64(n)
}

func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

func clamp(v float64) float64 {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
