package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/memory"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

var sinksCmd = &cobra.Command{
	Use:   "sinks [entry-id]",
	Short: "Inspect sink replication status",
	Long:  "Show sink replication counts, or per-sink status for one entry. Use `brain sinks retry` to requeue failed replications.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSinks,
}

var sinksRetryLimit int

var sinksRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Requeue failed sink replications",
	RunE:  runSinksRetry,
}

func init() {
	sinksRetryCmd.Flags().IntVarP(&sinksRetryLimit, "limit", "n", 50, "Maximum number of failed replications to requeue")
	sinksCmd.AddCommand(sinksRetryCmd)
}

func runSinks(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return showEntrySync(args[0])
	}
	return showSyncSummary()
}

func showEntrySync(entryID string) error {
	var statuses []store.SyncStatus

	if client := apiClient(); client.Healthy() {
		var err error
		statuses, err = client.SyncStatus(entryID)
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

		statuses, err = eng.SyncStatus(memory.EntryID(entryID))
		if err != nil {
			return err
		}
	}

	if len(statuses) == 0 {
		fmt.Printf("no replication recorded for %s\n", entryID)
		return nil
	}

	for _, st := range statuses {
		line := fmt.Sprintf("%-10s %s", st.Status, st.SinkName)
		if st.Detail != "" {
			line += fmt.Sprintf("  (%s)", st.Detail)
		}
		if st.AttemptedAt > 0 {
			line += "  " + time.UnixMilli(st.AttemptedAt).UTC().Format(time.RFC3339)
		}
		fmt.Println(line)
	}
	return nil
}

func showSyncSummary() error {
	var stats *engine.Stats

	if client := apiClient(); client.Healthy() {
		var err error
		stats, err = client.Stats()
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

		stats, err = eng.Stats()
		if err != nil {
			return err
		}
	}

	if len(stats.Sinks) == 0 {
		fmt.Println("no sinks configured")
	} else {
		fmt.Printf("sinks: %s\n", strings.Join(stats.Sinks, ", "))
	}
	for _, status := range []string{store.SyncPending, store.SyncCompleted, store.SyncFailed} {
		fmt.Printf("  %s: %d\n", status, stats.Sync[status])
	}
	return nil
}

func runSinksRetry(cmd *cobra.Command, args []string) error {
	var retried int

	if client := apiClient(); client.Healthy() {
		var err error
		retried, err = client.RetrySync(sinksRetryLimit)
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

		retried, err = eng.RetrySync(sinksRetryLimit)
		if err != nil {
			return err
		}
	}

	fmt.Printf("requeued %d failed replications\n", retried)
	return nil
}
