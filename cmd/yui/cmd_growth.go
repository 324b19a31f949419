package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"yui/internal/config"
	"yui/internal/growth"
	"yui/internal/store"
)

var growthSamples int

var growthCmd = &cobra.Command{
	Use:   "growth",
	Short: "Analyze the thought history for developmental trends",
	RunE:  runGrowth,
}

func init() {
	growthCmd.Flags().IntVar(&growthSamples, "samples", 200, "how many recent thoughts to analyze")
}

func runGrowth(cmd *cobra.Command, args []string) error {
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

	history, err := st.RecentThoughts(growthSamples)
	if err != nil {
		return err
	}

	snap := growth.Analyze(history)
	if !snap.Sufficient {
		fmt.Printf("not enough history yet: %d thoughts recorded, need more before trends mean anything\n", snap.Samples)
		return nil
	}

	fmt.Printf("analyzed %d thoughts\n\n", snap.Samples)
	fmt.Printf("confidence: %s (%.4f per thought, mean %.2f)\n",
		snap.ConfidenceTrend, snap.ConfidenceSlope, snap.MeanConfidence)
	fmt.Printf("depth:      %s (%.1f runes per thought, mean %.0f)\n",
		snap.DepthTrend, snap.DepthSlope, snap.MeanLength)
	fmt.Printf("dominant category: %s\n", snap.DominantCategory)

	if len(snap.Patterns) > 0 {
		fmt.Println("\npatterns:")
		for _, p := range snap.Patterns {
			fmt.Printf("  (%.2f) %s\n", p.Significance, p.Description)
		}
	}
	return nil
}
