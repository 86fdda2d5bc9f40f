package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftline/intentd/internal/config"
	"github.com/driftline/intentd/internal/scoring"
	"github.com/driftline/intentd/internal/server"
	"github.com/driftline/intentd/internal/store"
	"github.com/driftline/intentd/internal/taxonomy"
	"github.com/driftline/intentd/internal/telemetry"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Load the signal catalog
	var reg *taxonomy.Registry
	if cfg.Taxonomy.Path != "" {
		reg, err = taxonomy.Load(cfg.Taxonomy.Path)
		if err != nil {
			return fmt.Errorf("load taxonomy: %w", err)
		}
		fmt.Fprintf(os.Stderr, "  taxonomy: %s (%d signal types)\n", cfg.Taxonomy.Path, reg.Len())
	} else {
		reg = taxonomy.DefaultCatalog()
		fmt.Fprintf(os.Stderr, "  taxonomy: built-in (%d signal types)\n", reg.Len())
	}

	tel, err := telemetry.Setup(telemetry.Config{ServiceName: "intentd", Enabled: cfg.Telemetry.Enabled})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tel.Shutdown(ctx)
	}()

	// Hydrate the score cache from persisted scores, then start the engine.
	cache := scoring.NewCache()
	scores, err := db.AllScores(context.Background())
	if err != nil {
		return fmt.Errorf("hydrate score cache: %w", err)
	}
	cache.Hydrate(scores)

	eng := scoring.New(db, reg, cache, cfg.Scoring, tel.Instruments())
	eng.StartSweepTimer(cfg.SweepInterval())
	defer eng.Stop()

	srv := server.New(db, eng, cache, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "intentd serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  sweep: every %s\n", cfg.SweepInterval())
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
