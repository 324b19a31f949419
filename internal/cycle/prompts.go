package cycle

import (
	"fmt"
	"strings"

	"yui/internal/types"
)

// thoughtExcerpt bounds how much of each S1 thought is quoted back into
// derived-stage prompts, keeping prompt size roughly flat per cycle.
const thoughtExcerpt = 600

// buildQuestionPrompt renders the trigger plus a few open questions carried
// over from earlier cycles.
func (o *Orchestrator) buildQuestionPrompt(t types.Trigger, openQuestions []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("A question has surfaced (%s): %s\n", t.Category, t.Question))

	if len(openQuestions) > 0 {
		sb.WriteString("\nStill open from earlier reflection:\n")
		for _, q := range openQuestions {
			sb.WriteString("- " + q + "\n")
		}
	}

	sb.WriteString("\nRespond with your own thinking, in your own voice. If the question resists a clean answer, say what resists.")
	return sb.String()
}

// buildDerivedPrompt renders the stage-specific instruction over the S1
// thought set.
func (o *Orchestrator) buildDerivedPrompt(c *types.ThoughtCycle, kind types.ReflectionKind) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The question was: %s\n\nThe voices thought:\n\n", c.Trigger.Question))

	for _, t := range c.Thoughts {
		name := t.PersonaID
		if p, ok := o.registry.Get(t.PersonaID); ok {
			name = p.DisplayName
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n\n", name, excerpt(t.Content, thoughtExcerpt)))
	}

	switch kind {
	case types.ReflectionSynthesis:
		sb.WriteString("Reflect on where these thoughts converge and where they pull apart. What does the disagreement itself reveal?")
	case types.ReflectionCritique:
		sb.WriteString("Critique these thoughts. Which claims are unsupported, circular or comfortable? Be specific about what each voice got wrong.")
	case types.ReflectionAudit:
		sb.WriteString("Audit these thoughts for how they treat whoever the question touches. Do they hold care and honesty together, or trade one for the other?")
	}
	return sb.String()
}

func excerpt(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
