package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var admitCmd = &cobra.Command{
	Use:   "admit [session] [entry-id]",
	Short: "Admit an entry into a session's working memory",
	Long:  "Admit a stored entry into a session's working memory. The session holds at most 7 entries; the least important one is evicted when full.",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdmit,
}

func runAdmit(cmd *cobra.Command, args []string) error {
	sessionID, entryID := args[0], args[1]

	client := apiClient()
	if !client.Healthy() {
		return fmt.Errorf("working memory lives in the server; start `brain serve` first")
	}

	evicted, err := client.Admit(sessionID, entryID)
	if err != nil {
		return err
	}

	fmt.Printf("admitted %s into session %s\n", entryID, sessionID)
	for _, id := range evicted {
		fmt.Printf("evicted %s\n", id)
	}
	return nil
}
