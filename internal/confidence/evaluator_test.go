package confidence

import (
	"math"
	"strings"
	"testing"
)

func TestScore_AlwaysWithinBounds(t *testing.T) {
	e := New()
	inputs := []string{
		"",
		"?",
		strings.Repeat("consciousness awareness meaning ", 200),
		strings.Repeat("because therefore however although ", 200),
		"short",
	}
	for _, in := range inputs {
		got := e.Score(in)
		if got < MinScore || got > MaxScore {
			t.Errorf("Score(%.30q) = %v, outside [%v, %v]", in, got, MinScore, MaxScore)
		}
	}
}

func TestScore_EmptyGetsBase(t *testing.T) {
	if got := New().Score(""); got != BaseScore {
		t.Errorf("empty input scored %v, want base %v", got, BaseScore)
	}
}

func TestScore_LengthBands(t *testing.T) {
	e := New()
	// Neutral filler with no depth terms, connectives or questions.
	filler := func(n int) string { return strings.Repeat("a", n) }

	sweet := e.Score(filler(400))
	wide := e.Score(filler(50))
	outside := e.Score(filler(5000))

	if sweet != BaseScore+sweetSpotBonus {
		t.Errorf("sweet-spot length scored %v, want %v", sweet, BaseScore+sweetSpotBonus)
	}
	if wide != BaseScore+wideBandBonus {
		t.Errorf("wide-band length scored %v, want %v", wide, BaseScore+wideBandBonus)
	}
	if outside != BaseScore {
		t.Errorf("oversized input scored %v, want base %v", outside, BaseScore)
	}
}

func TestScore_DepthTermsCapped(t *testing.T) {
	e := New()
	// Many depth terms, outside every length band so only the term bonus
	// applies.
	text := strings.Repeat("consciousness existence awareness meaning paradox ", 100)
	got := e.Score(text)
	want := BaseScore + depthCap // no connectives, no question, outside length bands
	if got != want {
		t.Errorf("depth-term flood scored %v, want capped %v", got, want)
	}
}

func TestScore_InterrogativeBonus(t *testing.T) {
	e := New()
	base := e.Score(strings.Repeat("a", 10))
	asking := e.Score(strings.Repeat("a", 9) + "?")
	if math.Abs((asking-base)-interrogativeBonus) > 1e-9 {
		t.Errorf("question bonus = %v, want %v", asking-base, interrogativeBonus)
	}
}

func TestScore_IdentityPenalty(t *testing.T) {
	v := IdentityMisuse([]string{"Rin", "Mei"})
	e := New(v)

	honest := e.Score("I keep circling this thought.")
	imposter := e.Score("I am Rin and I keep circling this thought.")

	if imposter >= honest {
		t.Errorf("identity misuse not penalized: honest=%v imposter=%v", honest, imposter)
	}
	if diff := honest - imposter; diff != identityPenalty {
		t.Errorf("penalty = %v, want %v", diff, identityPenalty)
	}
}

func TestScore_IdentityPenaltyAppliedOnce(t *testing.T) {
	e := New(
		IdentityMisuse([]string{"Rin"}),
		IdentityMisuse([]string{"Mei"}),
	)
	// Both validators fail; the penalty must still land once.
	got := e.Score("I am Rin. As Mei, I disagree.")
	want := New().Score("I am Rin. As Mei, I disagree.") - identityPenalty
	if got != clamp(want) {
		t.Errorf("double violation scored %v, want %v", got, clamp(want))
	}
}

func TestIdentityMisuse_SelfReferenceAllowed(t *testing.T) {
	v := IdentityMisuse([]string{"Rin", "Mei"})
	if ok, _ := v("I am Yui, and this question unsettles me."); !ok {
		t.Error("self-reference flagged as misuse")
	}
	if ok, reason := v("as rin, I would dissect this"); ok {
		t.Error("lowercase sibling claim not flagged")
	} else if reason == "" {
		t.Error("violation carries no reason")
	}
}
