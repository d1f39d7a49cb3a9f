package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = "migration command: up|down|status|version|to|create|validate"

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory for create and validate")
	name := flag.String("name", "", "migration name (create)")
	target := flag.String("target", "", "target version YYYYMMDDHHMMSS (to)")
	flag.Parse()

	// create and validate only touch files on disk
	switch *cmd {
	case "create":
		if *name == "" {
			exit("missing -name for create")
		}
		path, err := migrate.Scaffold(*dir, *name, time.Now())
		if err != nil {
			exit(err.Error())
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exit(fmt.Sprintf("migration validation failed: %v", err))
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		exit(fmt.Sprintf("load config: %v", err))
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	if cfg.FeatureFlags.UseSQLite {
		exit("goose migrations target postgres; sqlite dev databases use STOREFRONT_AUTO_MIGRATE")
	}

	dbClient, err := db.New(ctx, cfg.DB, db.Options{}, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "extract sql.DB", err)
		os.Exit(1)
	}
	runner, err := migrate.NewRunner(sqlDB, goose.DialectPostgres, migrate.Files())
	if err != nil {
		logg.Error(ctx, "build migration runner", err)
		os.Exit(1)
	}

	if err := runCommand(ctx, logg, runner, *cmd, *target); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, logg *logger.Logger, runner *migrate.Runner, cmd, target string) error {
	switch cmd {
	case "up":
		applied, err := runner.Up(ctx)
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
		return err
	case "down":
		version, err := runner.Down(ctx)
		if err == nil {
			logg.Info(logg.WithField(ctx, "version", version), "migration rolled back")
		}
		return err
	case "to":
		if target == "" {
			return fmt.Errorf("missing -target for to")
		}
		moved, err := runner.To(ctx, target)
		logg.Info(logg.WithFields(ctx, map[string]any{"target": target, "migrations": moved}), "schema moved")
		return err
	case "version":
		version, err := runner.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			applied := "-"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-8s %-25s %s\n", st.State, applied, st.Source.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown -cmd %q (%s)", cmd, usage)
	}
}

func exit(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
