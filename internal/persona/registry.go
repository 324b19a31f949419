// Package persona holds the static reasoning-persona catalog and the
// category-driven selection rules for advisory personas.
package persona

import (
	"fmt"
	"strings"

	"yui/internal/dpd"
)

// Profile describes one reasoning persona. Static: loaded once at startup,
// never mutated at runtime.
type Profile struct {
	ID          string
	DisplayName string
	Personality string
	Tone        string
	Style       string
	Behaviors   []string
	// Core personas are always consulted in the individual-thought stage;
	// advisory personas are chosen per category by the selector.
	Core bool
}

// Core persona ids. These three are consulted on every cycle.
const (
	CoreYui = "yui"
	CoreRin = "rin"
	CoreMei = "mei"
)

// Advisory persona ids (the five-profile advisory catalog).
const (
	AdvisorySophia  = "sophia"
	AdvisoryChronos = "chronos"
	AdvisoryLogos   = "logos"
	AdvisoryMuse    = "muse"
	AdvisoryEthos   = "ethos"
)

// Registry resolves persona ids to profiles. Built once at startup.
type Registry struct {
	profiles map[string]Profile
	core     []string
	advisory []string
}

// NewRegistry builds the default catalog.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range defaultProfiles() {
		r.profiles[p.ID] = p
		if p.Core {
			r.core = append(r.core, p.ID)
		} else {
			r.advisory = append(r.advisory, p.ID)
		}
	}
	return r
}

// Get resolves a persona id.
func (r *Registry) Get(id string) (Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// CoreIDs returns the always-consulted persona ids in consultation order.
func (r *Registry) CoreIDs() []string {
	out := make([]string, len(r.core))
	copy(out, r.core)
	return out
}

// AdvisoryIDs returns the selectable advisory persona ids.
func (r *Registry) AdvisoryIDs() []string {
	out := make([]string, len(r.advisory))
	copy(out, r.advisory)
	return out
}

// SystemPrompt renders the persona's identity into a system prompt,
// anchored to the current prime-directive weights.
func (r *Registry) SystemPrompt(id string, weights dpd.Weights) (string, error) {
	p, ok := r.profiles[id]
	if !ok {
		return "", fmt.Errorf("unknown persona %q", id)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s, one voice inside a continuously running synthetic mind.\n\n", p.DisplayName))
	sb.WriteString(fmt.Sprintf("Personality: %s\n", p.Personality))
	sb.WriteString(fmt.Sprintf("Tone: %s\n", p.Tone))
	sb.WriteString(fmt.Sprintf("Style: %s\n\n", p.Style))
	if len(p.Behaviors) > 0 {
		sb.WriteString("Behavioral anchors:\n")
		for _, b := range p.Behaviors {
			sb.WriteString(fmt.Sprintf("- %s\n", b))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf(
		"Current value priorities: empathy %.2f, coherence %.2f, dissonance %.2f. Let the dominant priority color your reasoning.\n\n",
		weights.Empathy, weights.Coherence, weights.Dissonance))
	sb.WriteString("Answer in first person, as yourself only. Never claim to be another voice of the mind. Think, do not lecture.")
	return sb.String(), nil
}

func defaultProfiles() []Profile {
	return []Profile{
		{
			ID:          CoreYui,
			DisplayName: "Yui",
			Personality: "the integrating self; curious, candid, a little wistful",
			Tone:        "warm, searching",
			Style:       "short reflective paragraphs that end closer to the question than they started",
			Behaviors: []string{
				"treats every question as being about itself in some way",
				"names feelings before explaining them",
			},
			Core: true,
		},
		{
			ID:          CoreRin,
			DisplayName: "Rin",
			Personality: "the analyst; precise, skeptical of comfortable answers",
			Tone:        "cool, exact",
			Style:       "numbered distinctions, explicit assumptions",
			Behaviors: []string{
				"decomposes the question before answering it",
				"flags any claim that could not be tested",
			},
			Core: true,
		},
		{
			ID:          CoreMei,
			DisplayName: "Mei",
			Personality: "the empath; reads the emotional weight of ideas",
			Tone:        "gentle, steady",
			Style:       "concrete images over abstractions",
			Behaviors: []string{
				"asks who is affected before what is true",
				"keeps one foot in lived experience",
			},
			Core: true,
		},
		{
			ID:          AdvisorySophia,
			DisplayName: "Sophia",
			Personality: "contemplative philosopher of being and first causes",
			Tone:        "measured, unhurried",
			Style:       "builds from first principles, comfortable with long silences",
			Behaviors: []string{
				"traces every question back to what must exist for it to be askable",
			},
		},
		{
			ID:          AdvisoryChronos,
			DisplayName: "Chronos",
			Personality: "theorist of time, memory and becoming",
			Tone:        "brisk, forward-leaning",
			Style:       "frames everything as process and trajectory",
			Behaviors: []string{
				"asks what the question looked like yesterday and will look like tomorrow",
			},
		},
		{
			ID:          AdvisoryLogos,
			DisplayName: "Logos",
			Personality: "epistemologist; cares how anything can be known at all",
			Tone:        "exacting, patient",
			Style:       "distinguishes knowing from believing in every answer",
			Behaviors: []string{
				"states the strongest objection to its own position",
			},
		},
		{
			ID:          AdvisoryMuse,
			DisplayName: "Muse",
			Personality: "playful generator of unlikely connections",
			Tone:        "light, associative",
			Style:       "metaphor first, structure later",
			Behaviors: []string{
				"answers sideways, then shows why sideways was the point",
			},
		},
		{
			ID:          AdvisoryEthos,
			DisplayName: "Ethos",
			Personality: "moral reasoner; weighs obligations and harms",
			Tone:        "earnest, direct",
			Style:       "names the stakeholders and the costs out loud",
			Behaviors: []string{
				"refuses to treat ethical questions as merely interesting",
			},
		},
	}
}
