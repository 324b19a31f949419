package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yui/internal/trigger"
	"yui/internal/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Run a single thought cycle on a question",
	Long: `Runs one complete thought cycle for the given question and prints the
thoughts, reflections and carried-forward sub-questions. The cycle is
persisted like any other; the continuous loop is not started.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	e, err := newEngine(false)
	if err != nil {
		return err
	}
	defer e.Close()

	question := strings.Join(args, " ")
	t := trigger.Manual(question)
	fmt.Printf("? [%s] %s\n\n", t.Category, t.Question)

	c, err := e.orch.Run(context.Background(), t)
	if err != nil {
		return err
	}

	for _, th := range c.Thoughts {
		name := th.PersonaID
		if p, ok := e.reg.Get(th.PersonaID); ok {
			name = p.DisplayName
		}
		fmt.Printf("-- %s (confidence %.2f) --\n%s\n\n", name, th.Confidence, th.Content)
	}
	for _, r := range c.Reflections {
		fmt.Printf("-- %s by %s (%.2f) --\n%s\n\n", r.Kind, r.PersonaID, r.Score, r.Content)
	}
	if len(c.Unresolved) > 0 {
		fmt.Println("carried forward:")
		for _, q := range c.Unresolved {
			fmt.Printf("  %s\n", q)
		}
	}
	fmt.Printf("\nweights after cycle: %s (energy %.1f/%.0f)\n",
		e.evolver.Current(), e.meter.Level(), e.meter.Max())

	if c.Status == types.CycleFailed {
		return fmt.Errorf("cycle did not complete")
	}
	return nil
}
