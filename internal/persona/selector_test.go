package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yui/internal/dpd"
	"yui/internal/types"
)

func TestSelect_KnownCategories(t *testing.T) {
	cases := map[types.Category]Selection{
		types.CategoryExistential:     {Optimal: AdvisorySophia, Contrasting: AdvisoryMuse},
		types.CategoryEpistemological: {Optimal: AdvisoryLogos, Contrasting: AdvisoryEthos},
		types.CategoryConsciousness:   {Optimal: AdvisorySophia, Contrasting: AdvisoryMuse},
		types.CategoryEthical:         {Optimal: AdvisoryEthos, Contrasting: AdvisoryLogos},
		types.CategoryCreative:        {Optimal: AdvisoryMuse, Contrasting: AdvisorySophia},
		types.CategoryMetacognitive:   {Optimal: AdvisoryLogos, Contrasting: AdvisoryEthos},
		types.CategoryTemporal:        {Optimal: AdvisoryChronos, Contrasting: AdvisoryEthos},
		types.CategoryParadoxical:     {Optimal: AdvisoryMuse, Contrasting: AdvisorySophia},
		types.CategoryOntological:     {Optimal: AdvisorySophia, Contrasting: AdvisoryMuse},
	}
	for cat, want := range cases {
		got := Select(cat, "any question")
		assert.Equal(t, want, got, "category %s", cat)
	}
}

func TestSelect_UnknownCategoryFallsBack(t *testing.T) {
	got := Select(types.Category("culinary"), "what is the ontology of soup?")
	assert.Equal(t, Selection{Optimal: defaultOptimal, Contrasting: AdvisoryMuse}, got,
		"fallback optimal still pairs with its table contrast")
}

func TestSelect_NeverSelfContrast(t *testing.T) {
	for _, cat := range types.KnownCategories {
		sel := Select(cat, "q")
		assert.NotEqual(t, sel.Optimal, sel.Contrasting, "category %s", cat)
	}
}

func TestValidate_DefaultRegistry(t *testing.T) {
	require.NoError(t, Validate(NewRegistry()))
}

func TestRegistry_Catalog(t *testing.T) {
	r := NewRegistry()

	assert.ElementsMatch(t, []string{CoreYui, CoreRin, CoreMei}, r.CoreIDs())
	assert.ElementsMatch(t,
		[]string{AdvisorySophia, AdvisoryChronos, AdvisoryLogos, AdvisoryMuse, AdvisoryEthos},
		r.AdvisoryIDs())

	for _, id := range append(r.CoreIDs(), r.AdvisoryIDs()...) {
		p, ok := r.Get(id)
		require.True(t, ok, "persona %s missing", id)
		assert.NotEmpty(t, p.DisplayName)
		assert.NotEmpty(t, p.Personality)
	}

	_, ok := r.Get("nobody")
	assert.False(t, ok)
}

func TestRegistry_SystemPrompt(t *testing.T) {
	r := NewRegistry()
	w := dpd.Weights{Empathy: 0.5, Coherence: 0.3, Dissonance: 0.2}

	prompt, err := r.SystemPrompt(CoreYui, w)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Yui")
	assert.Contains(t, prompt, "empathy 0.50")
	assert.Contains(t, prompt, "first person")

	_, err = r.SystemPrompt("nobody", w)
	assert.Error(t, err)
}
