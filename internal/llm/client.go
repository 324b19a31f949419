// Package llm is the text-generation collaborator surface: a minimal client
// interface, a Gemini implementation, and a slot scheduler that bounds
// concurrent API calls across persona fan-outs.
package llm

import (
	"context"
	"time"
)

// Client is the minimal interface personas use to generate text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Result is the settled outcome of one generation call.
type Result struct {
	Success  bool
	Content  string
	Err      error
	Duration time.Duration
}

// Execute runs one generation call and settles it into a Result; it never
// returns an error directly so fan-out joins can treat failures as data.
func Execute(ctx context.Context, c Client, userPrompt, systemPrompt string) Result {
	start := time.Now()
	var (
		content string
		err     error
	)
	if systemPrompt == "" {
		content, err = c.Complete(ctx, userPrompt)
	} else {
		content, err = c.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	}
	return Result{
		Success:  err == nil,
		Content:  content,
		Err:      err,
		Duration: time.Since(start),
	}
}
