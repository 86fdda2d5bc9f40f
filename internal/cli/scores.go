package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/driftline/intentd/internal/config"
	"github.com/driftline/intentd/internal/decay"
	"github.com/driftline/intentd/internal/store"
	"github.com/spf13/cobra"
)

var scoresLimit int

var scoresCmd = &cobra.Command{
	Use:   "scores <category>",
	Short: "List scored entities in an intent category",
	Long:  "Reads persisted scores straight from the database, ordered by overall score descending. Categories: hot, warm, engaged, aware, cold.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScores,
}

func init() {
	scoresCmd.Flags().IntVar(&scoresLimit, "limit", 50, "maximum entities to list")
}

func runScores(cmd *cobra.Command, args []string) error {
	category := args[0]
	switch category {
	case decay.CategoryHot, decay.CategoryWarm, decay.CategoryEngaged, decay.CategoryAware, decay.CategoryCold:
	default:
		return fmt.Errorf("unknown category %q (want hot, warm, engaged, aware or cold)", category)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	scores, err := db.ListScoresByCategory(context.Background(), category, scoresLimit, 0)
	if err != nil {
		return fmt.Errorf("list scores: %w", err)
	}
	if len(scores) == 0 {
		fmt.Printf("no %s entities\n", category)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tTYPE\tSCORE\tTREND\tSTRONGEST\tSIGNALS")
	for _, s := range scores {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\t%s\t%d\n",
			s.EntityID, s.EntityType, s.OverallScore, s.ScoreTrend, s.StrongestSignalType, s.ActiveSignalCount)
	}
	return w.Flush()
}
