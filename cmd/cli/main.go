package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mixtools/mixatlas/pkg/runtime/terminal"
	"github.com/mixtools/mixatlas/pkg/services/allocation"
	"github.com/mixtools/mixatlas/pkg/services/calendar"
	"github.com/mixtools/mixatlas/pkg/services/config"
	"github.com/mixtools/mixatlas/pkg/services/registry"
	"github.com/mixtools/mixatlas/pkg/solver"
	"github.com/mixtools/mixatlas/pkg/store/sqlite"
	"github.com/mixtools/mixatlas/pkg/store/sqlite/runs"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	cfgPath := os.Getenv("MIXATLAS_CONFIG")
	if cfgPath == "" {
		cfgPath = "mixatlas.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: cfg.Store.Path})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	runStore, err := runs.NewStore(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	explorer := registry.NewFileExplorer(cfg.Bundles.Dir, nil)
	if err := explorer.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	builder := calendar.NewBuilder(calendar.NewCivilSource(), cfg.Calendar.Country)

	cli := terminal.NewCLI(terminal.Options{
		Registry:  explorer,
		Allocator: allocation.NewController(builder, solver.New()),
		Runs:      runStore,
		Output:    os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
