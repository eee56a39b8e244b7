package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recallContext bool

var recallCmd = &cobra.Command{
	Use:   "recall [session]",
	Short: "Show a session's working memory",
	Long:  "List a session's working memory, highest importance first. Working memory lives in the server, so `brain serve` must be running.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().BoolVar(&recallContext, "context", false, "Print the full markdown context block for session start")
}

func runRecall(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	client := apiClient()
	if !client.Healthy() {
		return fmt.Errorf("working memory lives in the server; start `brain serve` first")
	}

	if recallContext {
		text, err := client.Context(sessionID)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	entries, err := client.WorkingMemory(sessionID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("Working memory for session %s is empty.\n", sessionID)
		return nil
	}

	fmt.Printf("Working memory for session %s (%d of 7):\n", sessionID, len(entries))
	for _, e := range entries {
		fmt.Printf("  [%.2f] %s (%s)\n", e.Importance, snippet(e.Content), e.ID)
	}
	return nil
}
