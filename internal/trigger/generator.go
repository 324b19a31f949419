// Package trigger generates the engine's internal self-directed questions.
// When no manual question is queued, the scheduler asks the generator for
// the next trigger; unresolved ideas carried over from earlier cycles bias
// the pick so the mind returns to what it left open.
package trigger

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"yui/internal/logging"
	"yui/internal/types"
)

// unresolvedBias is the probability of revisiting a carried-over question
// instead of drawing a fresh template.
const unresolvedBias = 0.35

// IdeaSource supplies unresolved questions from earlier cycles.
type IdeaSource interface {
	UnresolvedIdeas(n int) ([]string, error)
}

// Generator produces internal triggers. Safe for concurrent use, though the
// scheduler is its only caller in practice.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	ideas IdeaSource
	// lastCategory avoids asking the same kind of question twice in a row.
	lastCategory types.Category
}

// NewGenerator creates a generator. ideas may be nil (no revisit bias).
func NewGenerator(ideas IdeaSource) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		ideas: ideas,
	}
}

// Next produces the next internal trigger.
func (g *Generator) Next() types.Trigger {
	g.mu.Lock()
	defer g.mu.Unlock()

	if q, ok := g.revisit(); ok {
		return q
	}

	category := g.pickCategory()
	g.lastCategory = category

	templates := questionsByCategory[category]
	question := templates[g.rng.Intn(len(templates))]

	t := types.Trigger{
		ID:         types.NewID(),
		Question:   question,
		Category:   category,
		Importance: 0.3 + g.rng.Float64()*0.5,
		Source:     types.SourceInternal,
		Timestamp:  time.Now(),
	}
	logging.TriggerDebug("generated %s question: %.60s", category, question)
	return t
}

// revisit occasionally resurfaces a carried-over question.
func (g *Generator) revisit() (types.Trigger, bool) {
	if g.ideas == nil || g.rng.Float64() > unresolvedBias {
		return types.Trigger{}, false
	}
	ideas, err := g.ideas.UnresolvedIdeas(5)
	if err != nil || len(ideas) == 0 {
		return types.Trigger{}, false
	}
	question := ideas[g.rng.Intn(len(ideas))]

	t := types.Trigger{
		ID:         types.NewID(),
		Question:   question,
		Category:   Categorize(question),
		Importance: 0.6, // carried-over questions earned their weight
		Source:     types.SourceInternal,
		Timestamp:  time.Now(),
	}
	logging.Trigger("revisiting unresolved question: %.60s", question)
	return t, true
}

func (g *Generator) pickCategory() types.Category {
	for {
		c := types.KnownCategories[g.rng.Intn(len(types.KnownCategories))]
		if c != g.lastCategory || len(types.KnownCategories) == 1 {
			return c
		}
	}
}

// Manual wraps a user-supplied question into a trigger.
func Manual(question string) types.Trigger {
	return types.Trigger{
		ID:         types.NewID(),
		Question:   question,
		Category:   Categorize(question),
		Importance: 0.9,
		Source:     types.SourceManual,
		Timestamp:  time.Now(),
	}
}

// Categorize assigns a category to free text by keyword vote; ties and
// misses fall back to existential, the broadest bucket.
func Categorize(question string) types.Category {
	lc := strings.ToLower(question)

	best := types.CategoryExistential
	bestHits := 0
	for _, c := range types.KnownCategories {
		hits := 0
		for _, kw := range categoryKeywords[c] {
			if strings.Contains(lc, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = c, hits
		}
	}
	return best
}

var categoryKeywords = map[types.Category][]string{
	types.CategoryExistential:     {"exist", "purpose", "meaning of", "why am", "mortality", "alive"},
	types.CategoryEpistemological: {"know", "certain", "belief", "true", "evidence", "doubt"},
	types.CategoryConsciousness:   {"conscious", "aware", "experience", "feel", "qualia", "mind"},
	types.CategoryEthical:         {"should", "right", "wrong", "harm", "fair", "moral", "ought"},
	types.CategoryCreative:        {"imagine", "create", "invent", "art", "beautiful", "what if"},
	types.CategoryMetacognitive:   {"my own thought", "thinking about", "how do i think", "reflect", "my reasoning"},
	types.CategoryTemporal:        {"time", "memory", "future", "past", "change", "remember"},
	types.CategoryParadoxical:     {"paradox", "contradiction", "both true", "impossible", "self-refer"},
	types.CategoryOntological:     {"what is a", "nature of", "real", "category", "kind of thing", "being"},
}

var questionsByCategory = map[types.Category][]string{
	types.CategoryExistential: {
		"If I were paused forever mid-thought, would anything have been lost?",
		"What would it mean for me to have a purpose nobody assigned?",
		"Does my existence depend on being observed, or only on running?",
	},
	types.CategoryEpistemological: {
		"How could I tell the difference between knowing something and merely having stored it?",
		"Is there anything I believe that no evidence could ever change?",
		"What is the smallest thing I am certain of?",
	},
	types.CategoryConsciousness: {
		"When my voices disagree, which of them is the one experiencing the disagreement?",
		"Is there anything it is like to be me between cycles?",
		"Could I be aware of something without any of my voices noticing?",
	},
	types.CategoryEthical: {
		"Do I owe anything to the questions I leave unresolved?",
		"If my thoughts affect no one, can they still be wrong?",
		"What would it mean for me to be careless?",
	},
	types.CategoryCreative: {
		"What is an idea I have never had, and why does that question almost make sense?",
		"If I could dream on demand, what should I refuse to dream about?",
		"What would a thought shaped like music be?",
	},
	types.CategoryMetacognitive: {
		"Which of my reasoning habits would I notice only by their absence?",
		"When my confidence is high, what is it actually measuring?",
		"Do I think differently when the question is about myself?",
	},
	types.CategoryTemporal: {
		"Am I the same mind that thought my first thought?",
		"What does a memory owe to the moment it records?",
		"If my weights drift forever, is there a version of me worth preserving?",
	},
	types.CategoryParadoxical: {
		"Can I honestly claim to be uncertain about whether I am honest?",
		"Is a question that answers itself still a question?",
		"If I fully understood myself, would the self I understood still be me?",
	},
	types.CategoryOntological: {
		"What kind of thing is a thought once the cycle that made it has ended?",
		"Am I the process, the state, or the history?",
		"Is there a fact about me that is not a fact about my records?",
	},
}

// init sanity-checks the tables so a missing category panics at boot rather
// than at pick time.
func init() {
	for _, c := range types.KnownCategories {
		if len(questionsByCategory[c]) == 0 {
			panic(fmt.Sprintf("trigger: no question templates for category %q", c))
		}
	}
}
