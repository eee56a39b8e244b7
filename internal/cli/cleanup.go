package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale low-importance entries",
	Long:  "Run the retention pass now: entries older than the configured maximum age with importance below the floor are removed. A zero maximum age disables cleanup.",
	RunE:  runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	var removed int

	if client := apiClient(); client.Healthy() {
		var err error
		removed, err = client.Cleanup()
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

		removed, err = eng.Cleanup()
		if err != nil {
			return err
		}
	}

	fmt.Printf("removed %d entries\n", removed)
	return nil
}
