package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine health and counts",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	var (
		stats *engine.Stats
		mode  string
	)

	if client := apiClient(); client.Healthy() {
		var err error
		stats, err = client.Stats()
		if err != nil {
			return err
		}
		mode = "server"
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

		stats, err = eng.Stats()
		if err != nil {
			return err
		}
		mode = "local"
	}

	fmt.Printf("mode:      %s\n", mode)
	fmt.Printf("entries:   %d\n", stats.Entries)
	fmt.Printf("terms:     %d\n", stats.Terms)
	fmt.Printf("sessions:  %d\n", stats.Sessions)
	fmt.Printf("threshold: %.2f\n", stats.Threshold)
	fmt.Printf("schema:    v%d\n", stats.SchemaVersion)
	if len(stats.Sinks) > 0 {
		fmt.Printf("sinks:     %s\n", strings.Join(stats.Sinks, ", "))
		for _, status := range []string{store.SyncPending, store.SyncCompleted, store.SyncFailed} {
			if n := stats.Sync[status]; n > 0 {
				fmt.Printf("  %s: %d\n", status, n)
			}
		}
	}
	return nil
}
