package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/server"
)

var (
	searchLimit         int
	searchDimension     string
	searchTag           string
	searchProject       string
	searchSource        string
	searchMinImportance float64
	searchThreshold     float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search memories",
	Long:  "Search stored memories by relevance. Results scoring below the confidence threshold are withheld; an empty result means nothing was relevant enough.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of results (capped at 20)")
	searchCmd.Flags().StringVarP(&searchDimension, "dimension", "d", "", "Filter by dimension")
	searchCmd.Flags().StringVar(&searchTag, "tag", "", "Filter by tag")
	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "Project context for filtering and scoring")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "Filter by source system")
	searchCmd.Flags().Float64Var(&searchMinImportance, "min-importance", 0, "Drop results below this importance")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", -1, "Override the confidence gate for this query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	var threshold *float64
	if searchThreshold >= 0 {
		threshold = &searchThreshold
	}

	var results []engine.SearchResult
	if client := apiClient(); client.Healthy() {
		var err error
		results, err = client.Search(query, server.SearchParams{
			Limit:         searchLimit,
			Dimension:     searchDimension,
			Tag:           searchTag,
			Project:       searchProject,
			Source:        searchSource,
			MinImportance: searchMinImportance,
			Threshold:     threshold,
		})
		if err != nil {
			return err
		}
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		eng, db, err := openLocalEngine(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		defer eng.Close()

		results, err = eng.Search(query, engine.SearchOpts{
			Limit:          searchLimit,
			Dimension:      searchDimension,
			Tag:            searchTag,
			ProjectContext: searchProject,
			SourceSystem:   searchSource,
			MinImportance:  searchMinImportance,
			Threshold:      threshold,
		})
		if err != nil {
			return err
		}
	}

	if len(results) == 0 {
		fmt.Println("No memories above the confidence threshold.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, snippet(r.Entry.Content))
		fmt.Printf("   %s  [%s] importance %.2f\n", r.Entry.ID, strings.Join(r.Entry.Dimensions, ", "), r.Entry.Importance)
		if len(r.Entry.Tags) > 0 {
			fmt.Printf("   tags: %s\n", strings.Join(r.Entry.Tags, ", "))
		}
		fmt.Println()
	}

	return nil
}
