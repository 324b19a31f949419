package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"yui/internal/config"
	"yui/internal/dpd"
	"yui/internal/store"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print persisted engine state",
	Long: `Reads the store directly and prints cycle counts, the persisted energy
level, the weight history tail and the current core beliefs. Works whether
or not the engine is running.`,
	RunE: runState,
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Path(home))
	if err != nil {
		return err
	}
	dbPath := cfg.Memory.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(home, dbPath)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	cycles, thoughts, err := st.CycleCounts()
	if err != nil {
		return err
	}
	fmt.Printf("cycles:   %d\nthoughts: %d\n", cycles, thoughts)

	if level, ok, err := st.LoadEnergy(); err == nil && ok {
		fmt.Printf("energy:   %.1f/%.0f\n", level, cfg.Energy.Max)
	}

	history, err := st.QueryDPDHistory(5, dpd.SampleTail)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		fmt.Println("\nweight history (tail):")
		for _, h := range history {
			fmt.Printf("  v%-4d %s\n", h.Version, h.Weights)
		}
	}

	beliefs, err := st.CoreBeliefs(10)
	if err != nil {
		return err
	}
	if len(beliefs) > 0 {
		fmt.Println("\ncore beliefs:")
		for _, b := range beliefs {
			fmt.Printf("  (%.2f) %s\n", b.Significance, b.Statement)
		}
	}

	ideas, err := st.UnresolvedIdeas(5)
	if err != nil {
		return err
	}
	if len(ideas) > 0 {
		fmt.Println("\nopen questions:")
		for _, q := range ideas {
			fmt.Printf("  %s\n", q)
		}
	}
	return nil
}
