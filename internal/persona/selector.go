package persona

import (
	"fmt"

	"yui/internal/logging"
	"yui/internal/types"
)

// Selection is the advisory pair consulted alongside the core personas.
type Selection struct {
	Optimal     string
	Contrasting string
}

// defaultOptimal is used for categories outside the fixed table.
const defaultOptimal = AdvisorySophia

// defaultContrast is the fallback when an optimal id is somehow missing
// from the contrast table.
const defaultContrast = AdvisoryLogos

// optimalByCategory maps each known question category to the advisory
// persona best suited to lead on it.
var optimalByCategory = map[types.Category]string{
	types.CategoryExistential:     AdvisorySophia,
	types.CategoryEpistemological: AdvisoryLogos,
	types.CategoryConsciousness:   AdvisorySophia,
	types.CategoryEthical:         AdvisoryEthos,
	types.CategoryCreative:        AdvisoryMuse,
	types.CategoryMetacognitive:   AdvisoryLogos,
	types.CategoryTemporal:        AdvisoryChronos,
	types.CategoryParadoxical:     AdvisoryMuse,
	types.CategoryOntological:     AdvisorySophia,
}

// contrastByOptimal maps an optimal persona to its fixed opposite.
var contrastByOptimal = map[string]string{
	AdvisorySophia:  AdvisoryMuse,
	AdvisoryChronos: AdvisoryEthos,
	AdvisoryLogos:   AdvisoryEthos,
	AdvisoryMuse:    AdvisorySophia,
	AdvisoryEthos:   AdvisoryLogos,
}

// Select maps a question category to one optimal and one contrasting
// advisory persona. Pure and total: unknown categories fall back to the
// documented defaults with a logged notice, never an error. Safe for
// concurrent use.
func Select(category types.Category, question string) Selection {
	optimal, ok := optimalByCategory[category]
	if !ok {
		logging.Persona("no advisory mapping for category %q, using default %s (question: %.60s)",
			category, defaultOptimal, question)
		optimal = defaultOptimal
	}

	contrasting, ok := contrastByOptimal[optimal]
	if !ok {
		contrasting = defaultContrast
	}
	if contrasting == optimal {
		// The tables should make this impossible; Validate enforces it.
		contrasting = defaultContrast
	}

	logging.PersonaDebug("category=%s optimal=%s contrasting=%s", category, optimal, contrasting)
	return Selection{Optimal: optimal, Contrasting: contrasting}
}

// Validate checks the selection tables against a registry at startup so a
// misconfiguration cannot silently degrade into default picks:
// every known category must map to a registered advisory id, every optimal
// must have a contrast entry, and no pair may collapse to the same id.
func Validate(r *Registry) error {
	advisory := make(map[string]bool)
	for _, id := range r.AdvisoryIDs() {
		advisory[id] = true
	}

	for _, cat := range types.KnownCategories {
		optimal, ok := optimalByCategory[cat]
		if !ok {
			return fmt.Errorf("category %q has no optimal persona", cat)
		}
		if !advisory[optimal] {
			return fmt.Errorf("category %q maps to unregistered persona %q", cat, optimal)
		}
		contrasting, ok := contrastByOptimal[optimal]
		if !ok {
			return fmt.Errorf("optimal persona %q has no contrast entry", optimal)
		}
		if !advisory[contrasting] {
			return fmt.Errorf("contrast for %q is unregistered persona %q", optimal, contrasting)
		}
		if contrasting == optimal {
			return fmt.Errorf("persona %q contrasts with itself", optimal)
		}
	}

	if !advisory[defaultOptimal] || !advisory[defaultContrast] {
		return fmt.Errorf("default personas %q/%q not registered", defaultOptimal, defaultContrast)
	}
	return nil
}
