package main

import (
	"context"
	"flag"
	"log"
	"os"

	"typingscore/pkg/config"
	"typingscore/pkg/store"
	"typingscore/process/sanitize"
)

func main() {
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, reseed roles and the administrator")
		tables = flag.String("tables", sanitize.DefaultTables, "Comma-separated list of tables to truncate")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	gdb, err := store.Open(cfg.DSN)
	if err != nil {
		log.Fatal(err)
	}
	err = sanitize.Run(context.Background(), os.Stdout, gdb, sanitize.Options{
		Tables:            *tables,
		DryRun:            *dryRun,
		Confirm:           *yes,
		Reseed:            *reseed,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: cfg.AdminPasswordHash,
	})
	if err != nil {
		log.Fatal(err)
	}
}
