package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tar-ive/brain-system-sub000/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory tools over MCP stdio",
	Long:  "Run an MCP server on stdin/stdout exposing store, search, and working-memory tools. Point your agent's MCP config at `brain mcp`.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
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
	eng.StartRetentionTimer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return mcpserver.New(eng, VersionString()).Run(ctx)
}
