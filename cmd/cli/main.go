package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/akeren/waitlist-api/config"
	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/pkg/migrations"
	"github.com/akeren/waitlist-api/pkg/utils"
	flag "github.com/spf13/pflag"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "migrate":
		err = runMigrate(logger, args[1:])

	case "export":
		err = runExport(logger, args[1:])

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Command failed", "command", args[0], "error", err.Error())
		os.Exit(1)
	}
}

func runMigrate(logger *log.Logger, args []string) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dir := flags.String("dir", utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations"), "directory holding the SQL migrations")
	if err := flags.Parse(args); err != nil {
		return err
	}

	action := "up"
	if flags.NArg() > 0 {
		action = flags.Arg(0)
	}

	db, err := config.NewDatabase(logger, nil)
	if err != nil {
		return fmt.Errorf("connect to database for migration: %w", err)
	}
	defer config.CloseDatabase(db, logger)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance for migration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := migrations.Config{Dir: *dir, Logger: logger}

	switch action {
	case "up":
		if err := migrations.Up(ctx, sqlDB, cfg); err != nil {
			return err
		}
		logger.Info("Database migrations completed")

	case "down":
		steps := 1
		if flags.NArg() > 1 {
			steps, err = strconv.Atoi(flags.Arg(1))
			if err != nil {
				return fmt.Errorf("invalid step count %q: %w", flags.Arg(1), err)
			}
		}
		if err := migrations.Down(ctx, sqlDB, cfg, steps); err != nil {
			return err
		}
		logger.Info("Database migrations rolled back", "steps", steps)

	case "version":
		status, err := migrations.Version(ctx, sqlDB, cfg)
		if err != nil {
			return err
		}
		if status.Empty {
			fmt.Println("no migrations applied")
			return nil
		}
		fmt.Printf("version %d (dirty: %t)\n", status.Version, status.Dirty)

	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or version)", action)
	}

	return nil
}

func printUsage() {
	fmt.Println("Usage: waitlist-cli <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate [up|down [N]|version]   Manage the database schema")
	fmt.Println("  export [--output FILE] [--s3]   Export the waitlist as CSV to stdout, a file or S3")
}
