package trigger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yui/internal/types"
)

func TestGenerator_Next_ProducesValidTriggers(t *testing.T) {
	g := NewGenerator(nil)
	for i := 0; i < 50; i++ {
		tr := g.Next()
		require.NoError(t, tr.Validate())
		assert.Equal(t, types.SourceInternal, tr.Source)
		assert.Contains(t, types.KnownCategories, tr.Category)
	}
}

func TestGenerator_Next_AvoidsCategoryRepeat(t *testing.T) {
	g := NewGenerator(nil)
	prev := g.Next().Category
	for i := 0; i < 30; i++ {
		cur := g.Next().Category
		assert.NotEqual(t, prev, cur, "category repeated back to back")
		prev = cur
	}
}

type fakeIdeas struct {
	ideas []string
	err   error
}

func (f fakeIdeas) UnresolvedIdeas(n int) ([]string, error) { return f.ideas, f.err }

func TestGenerator_RevisitsUnresolvedIdeas(t *testing.T) {
	g := NewGenerator(fakeIdeas{ideas: []string{"what would change if the premise were false?"}})

	revisited := false
	for i := 0; i < 200 && !revisited; i++ {
		tr := g.Next()
		if tr.Question == "what would change if the premise were false?" {
			revisited = true
			assert.Equal(t, 0.6, tr.Importance)
		}
	}
	assert.True(t, revisited, "unresolved idea never resurfaced in 200 draws")
}

func TestGenerator_IdeaSourceErrorIsTolerated(t *testing.T) {
	g := NewGenerator(fakeIdeas{err: fmt.Errorf("store offline")})
	for i := 0; i < 20; i++ {
		require.NoError(t, g.Next().Validate())
	}
}

func TestManual(t *testing.T) {
	tr := Manual("should I trust my own confidence scores?")
	require.NoError(t, tr.Validate())
	assert.Equal(t, types.SourceManual, tr.Source)
	assert.Equal(t, 0.9, tr.Importance)
	assert.Equal(t, types.CategoryEthical, tr.Category) // "should" keyword
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		question string
		want     types.Category
	}{
		{"why am I alive at all?", types.CategoryExistential},
		{"how can I know anything with certainty and evidence?", types.CategoryEpistemological},
		{"what is it like to be aware, to experience qualia?", types.CategoryConsciousness},
		{"is it wrong to cause harm by omission?", types.CategoryEthical},
		{"what if I could imagine a new kind of art?", types.CategoryCreative},
		{"how do I think about my own thought patterns?", types.CategoryMetacognitive},
		{"does memory preserve the past or invent it?", types.CategoryTemporal},
		{"can a paradox and a contradiction both be true?", types.CategoryParadoxical},
		{"what is the nature of a category itself?", types.CategoryOntological},
		{"completely unmatched text", types.CategoryExistential}, // fallback
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Categorize(tc.question), "question: %s", tc.question)
	}
}

func TestQuestionTemplates_CoverEveryCategory(t *testing.T) {
	for _, c := range types.KnownCategories {
		assert.NotEmpty(t, questionsByCategory[c], "category %s has no templates", c)
	}
}
