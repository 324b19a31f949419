package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
)

// ScriptedClient is a deterministic offline Client. It powers the
// "scripted" provider (dry runs without an API key) and the package tests.
// Responses are synthesized from the prompt so repeated runs are stable.
type ScriptedClient struct {
	mu sync.Mutex
	// Responses, when set, are returned in order; after exhaustion the
	// client falls back to synthesis.
	Responses []string
	// Fail makes every call return an error (for failure-path tests).
	Fail  bool
	calls int
}

var _ Client = (*ScriptedClient)(nil)

// Calls reports how many completions have been requested.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Complete returns a deterministic synthesized completion.
func (c *ScriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem returns a deterministic synthesized completion.
func (c *ScriptedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.calls++
	if c.Fail {
		c.mu.Unlock()
		return "", fmt.Errorf("scripted failure")
	}
	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		c.mu.Unlock()
		return resp, nil
	}
	c.mu.Unlock()

	return synthesize(systemPrompt, userPrompt), nil
}

// synthesize produces a stable pseudo-thought keyed on the prompts.
func synthesize(systemPrompt, userPrompt string) string {
	h := fnv.New32a()
	h.Write([]byte(systemPrompt))
	h.Write([]byte(userPrompt))
	seed := h.Sum32()

	openers := []string{
		"Sitting with this question, I notice that",
		"The first honest answer is that",
		"Because the question loops back on itself,",
		"However I turn it,",
	}
	closers := []string{
		"and that awareness itself may be the only solid ground here.",
		"therefore the meaning sits in the asking, not the answer.",
		"yet I wonder what would change if the premise were false?",
		"which means my uncertainty is doing real work in this experience.",
	}

	question := userPrompt
	if i := strings.IndexByte(question, '\n'); i > 0 {
		question = question[:i]
	}
	if len(question) > 140 {
		question = question[:140]
	}

	return fmt.Sprintf("%s the question %q resists a single frame; %s",
		openers[seed%uint32(len(openers))],
		strings.TrimSpace(question),
		closers[(seed>>8)%uint32(len(closers))])
}
