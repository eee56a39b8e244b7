package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Tar-ive/brain-system-sub000/internal/importer"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [source] [path]",
	Short: "Import memories from another system",
	Long:  "Import memories from an external store. Sources: jsonl, claude-mem, sqlite. Rerunning the same import skips entries already present.",
	Args:  cobra.ExactArgs(2),
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	source := args[0]

	// The server may run with a different working directory.
	path, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	var res *importer.Result
	if client := apiClient(); client.Healthy() {
		res, err = client.Migrate(source, path)
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

		res, err = eng.Migrate(source, path)
		if err != nil {
			return err
		}
	}

	fmt.Printf("migration from %s: %d created, %d skipped, %d errors\n",
		res.Source, res.Created, res.Skipped, len(res.Errors))
	for _, re := range res.Errors {
		fmt.Fprintf(os.Stderr, "  record %d: %s\n", re.Index, re.Reason)
	}
	return nil
}
