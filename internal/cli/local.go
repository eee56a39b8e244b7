package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Tar-ive/brain-system-sub000/internal/config"
	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/logging"
	"github.com/Tar-ive/brain-system-sub000/internal/server"
	"github.com/Tar-ive/brain-system-sub000/internal/sink"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

// loadConfig reads the config file and points the default logger at it.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return config.Config{}, err
	}
	logging.SetDefault(logging.New(cfg.Log.Level, os.Stderr))
	return cfg, nil
}

func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.Database.Path != "" {
		return cfg.Database.Path, nil
	}
	return store.DefaultDBPath()
}

func engineOptions(cfg config.Config) (engine.Options, error) {
	opts := engine.Options{
		Threshold:   cfg.Engine.ConfidenceThreshold,
		DedupWindow: cfg.Engine.DedupWindow(),
		Weights:     cfg.Engine.ScoringWeights,
		DecayRate:   cfg.Engine.DecayRate,
		SinkTimeout: cfg.Engine.SinkTimeout(),
		SinkWorkers: cfg.Engine.WorkerPoolSize,
		SinkQueue:   cfg.Engine.SinkQueue,
		Retention: engine.RetentionPolicy{
			MaxAge:          cfg.Engine.Retention.MaxAge(),
			ImportanceFloor: cfg.Engine.Retention.ImportanceFloor,
			Interval:        cfg.Engine.Retention.Interval(),
		},
		Logger: logging.Default(),
	}
	for _, sc := range cfg.Sinks {
		s, err := sink.New(sc)
		if err != nil {
			return engine.Options{}, fmt.Errorf("sink %q: %w", sc.Name, err)
		}
		opts.Sinks = append(opts.Sinks, s)
	}
	return opts, nil
}

// openLocalEngine builds a full engine on the local database. The caller
// closes the engine first, then the store. Fails fast when another
// process holds the database lock.
func openLocalEngine(cfg config.Config) (*engine.Engine, *store.DB, error) {
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve db path: %w", err)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	opts, err := engineOptions(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	eng, err := engine.New(db, opts)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return eng, db, nil
}

func apiClient() *server.Client {
	return server.NewClient()
}

func snippet(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 100 {
		line = line[:97] + "..."
	}
	return line
}
