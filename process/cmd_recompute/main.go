package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"typingscore/pkg/config"
	"typingscore/pkg/store"
	"typingscore/process/recompute"
)

func main() {
	dry := flag.Bool("dry-run", false, "count stale scores without writing")
	retries := flag.Int("retries", 2, "extra passes after a serialization failure")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	db, err := store.Open(cfg.DSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := recompute.New(store.New(db))
	svc.DryRun = *dry
	svc.MaxRetries = *retries
	counts, err := svc.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recompute failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("recompute done: total=%d updated=%d dry_run=%v\n", counts.Total, counts.Updated, *dry)
}
