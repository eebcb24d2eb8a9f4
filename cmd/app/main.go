// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/jobboard/internal/config"
	"codeberg.org/oliverandrich/jobboard/internal/database"
	"codeberg.org/oliverandrich/jobboard/internal/server"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "jobboard",
		Usage:   "Job board account service",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: server.Run,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply all pending migrations", Action: migrateWith(database.RunMigrations)},
					{Name: "down", Usage: "Roll back the last migration", Action: migrateWith(database.MigrateDown)},
					{Name: "reset", Usage: "Roll back all migrations", Action: migrateWith(database.MigrateReset)},
					{Name: "status", Usage: "Print the applied schema version", Action: migrateWith(nil)},
				},
			},
		},
	}
}

// migrateWith connects without migrating, runs fn if set and prints the
// resulting schema version.
func migrateWith(fn func(*sql.DB) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		db, err := database.Connect(cmd.String("database-dsn"))
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if fn != nil {
			if err := fn(db.DB); err != nil {
				return err
			}
		}
		return printVersion(cmd, db.DB)
	}
}

func printVersion(cmd *cli.Command, db *sql.DB) error {
	v, err := database.Version(db)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "schema version %d\n", v)
	return err
}
