package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/server"
)

var (
	storeTags       []string
	storeDims       []string
	storeImportance float64
	storeProject    string
	storeSession    string
	storeSource     string
)

var storeCmd = &cobra.Command{
	Use:   "store [content...]",
	Short: "Store a memory",
	Long:  "Store a memory entry. Content comes from the arguments, or from stdin when none are given. Uses the running server when one is up, otherwise writes to the local database.",
	RunE:  runStore,
}

func init() {
	storeCmd.Flags().StringSliceVarP(&storeTags, "tag", "t", nil, "Tag the entry (repeatable)")
	storeCmd.Flags().StringSliceVarP(&storeDims, "dimension", "d", nil, "Set dimensions explicitly (repeatable)")
	storeCmd.Flags().Float64Var(&storeImportance, "importance", -1, "Importance in [0,1]; derived from content when unset")
	storeCmd.Flags().StringVarP(&storeProject, "project", "p", "", "Project context")
	storeCmd.Flags().StringVar(&storeSession, "session", "", "Admit the entry into this session's working memory")
	storeCmd.Flags().StringVar(&storeSource, "source", "cli", "Source system label")
}

func runStore(cmd *cobra.Command, args []string) error {
	content := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		content = string(data)
	}

	var importance *float64
	if storeImportance >= 0 {
		importance = &storeImportance
	}

	if client := apiClient(); client.Healthy() {
		out, err := client.StoreEntry(server.StoreEntryRequest{
			Content:        content,
			Tags:           storeTags,
			Dimensions:     storeDims,
			Importance:     importance,
			ProjectContext: storeProject,
			SourceSystem:   storeSource,
			SessionID:      storeSession,
		})
		if err != nil {
			return err
		}
		printStoreOutcome(out)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if storeSession != "" {
		fmt.Fprintln(os.Stderr, "note: working memory lives in the server; start `brain serve` to admit entries")
		storeSession = ""
	}

	eng, db, err := openLocalEngine(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	out, err := eng.Store(engine.StoreRequest{
		Content:        content,
		Tags:           storeTags,
		Dimensions:     storeDims,
		Importance:     importance,
		ProjectContext: storeProject,
		SourceSystem:   storeSource,
	})
	if err != nil {
		return err
	}
	printStoreOutcome(out)
	return nil
}

func printStoreOutcome(out *engine.StoreOutcome) {
	if out.Deduplicated {
		fmt.Printf("duplicate of %s\n", out.ID)
	} else {
		fmt.Printf("stored %s\n", out.ID)
	}
	for _, id := range out.Evicted {
		fmt.Printf("evicted %s from working memory\n", id)
	}
}
