package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/config"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/erp/commercesync/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		logLevel   string
		timeout    time.Duration
	)
	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (default: ./config.toml when present)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Migration timeout")
	flag.Usage = printUsage
	flag.Parse()

	command := "up"
	var args []string
	if flagArgs := flag.Args(); len(flagArgs) > 0 {
		command, args = flagArgs[0], flagArgs[1:]
	}

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	load := config.Load
	if configPath != "" {
		load = func() (*config.Config, error) { return config.LoadFile(configPath) }
	}
	cfg, err := load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(logLevel)),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch command {
	case "up":
		if err := db.AutoMigrate(ctx); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Schema is up to date",
			zap.String("database", cfg.Database.DBName),
			zap.Strings("append_only", persistence.AppendOnlyTables()),
		)
	case "check":
		if err := db.Ping(ctx); err != nil {
			log.Fatal("Database unreachable", zap.Error(err))
		}
		log.Info("Database reachable", zap.String("database", cfg.Database.DBName))
	case "connect", "disconnect", "connections":
		run := map[string]func(context.Context, integration.PlatformConnectionRepository, *zap.Logger, []string) error{
			"connect":     connect,
			"disconnect":  disconnect,
			"connections": listConnections,
		}[command]
		if err := run(ctx, persistence.NewGormPlatformConnectionRepository(db.DB), log, args); err != nil {
			if errors.Is(err, errUsage) {
				printUsage()
				os.Exit(1)
			}
			log.Fatal("Platform connection command failed", zap.String("command", command), zap.Error(err))
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: migrate [flags] [command]

Commands:
  up                                              Create or update the service tables (default)
  check                                           Verify the database is reachable
  connect <platform> <shop_id> <org_id> [name]    Bind a platform shop to an organization
  disconnect <platform> <shop_id>                 Stop a shop from resolving to its organization
  connections <org_id>                            List the platform connections of an organization

Flags:
`)
	flag.PrintDefaults()
}
