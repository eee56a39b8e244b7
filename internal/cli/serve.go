package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/logging"
	"github.com/Tar-ive/brain-system-sub000/internal/server"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return fmt.Errorf("resolve db path: %w", err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	opts, err := engineOptions(cfg)
	if err != nil {
		return err
	}
	eng, err := engine.New(db, opts)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close()
	eng.StartRetentionTimer()

	srv := server.New(eng, VersionString(), logging.Default())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "brain serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if len(cfg.Sinks) > 0 {
			names := make([]string, len(cfg.Sinks))
			for i, sc := range cfg.Sinks {
				names[i] = fmt.Sprintf("%s (%s)", sc.Name, sc.Type)
			}
			fmt.Fprintf(os.Stderr, "  sinks: %s\n", strings.Join(names, ", "))
		}
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
