package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mixtools/mixatlas/pkg/server"
	"github.com/mixtools/mixatlas/pkg/services/allocation"
	"github.com/mixtools/mixatlas/pkg/services/calendar"
	"github.com/mixtools/mixatlas/pkg/services/config"
	"github.com/mixtools/mixatlas/pkg/services/registry"
	"github.com/mixtools/mixatlas/pkg/solver"
	"github.com/mixtools/mixatlas/pkg/store/bundlecache"
	"github.com/mixtools/mixatlas/pkg/store/sqlite"
	"github.com/mixtools/mixatlas/pkg/store/sqlite/runs"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the budget allocation web server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "mixatlas.yaml",
		"Path to the service configuration file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: cfg.Store.Path})
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer db.Close()

	runStore, err := runs.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}

	var cache *bundlecache.Cache
	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		cache = bundlecache.New(client, cfg.Cache.TTL)
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("bundle cache enabled")
	}

	explorer := registry.NewFileExplorer(cfg.Bundles.Dir, cache)
	if err := explorer.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize model registry: %w", err)
	}

	builder := calendar.NewBuilder(calendar.NewCivilSource(), cfg.Calendar.Country)
	controller := allocation.NewController(builder, solver.New())

	logger.Info().Str("bundles", cfg.Bundles.Dir).Str("country", cfg.Calendar.Country).
		Msg("configuration loaded")

	api := server.NewWebAPI(logger, server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Registry:  explorer,
			Allocator: controller,
			Runs:      runStore,
		},
	})

	return api.Start()
}
