package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Strob0t/ChatForge/internal/adapter/postgres"
)

// runMigrate handles "chatforge migrate [up|down N|version]".
func runMigrate(args []string) error {
	cfg, flush, err := setup()
	if err != nil {
		return err
	}
	defer flush()

	ctx := context.Background()
	dsn := cfg.Postgres.DSN

	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "up":
		if err := postgres.RunMigrations(ctx, dsn); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps < 1 {
				return fmt.Errorf("migrate down: invalid step count %q", args[1])
			}
		}
		if err := postgres.RollbackMigrations(ctx, dsn, steps); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "version":
	default:
		printHelp()
		return fmt.Errorf("unknown migrate command: %s", cmd)
	}

	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}
	fmt.Printf("schema version: %d\n", v)
	return nil
}
