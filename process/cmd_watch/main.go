package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"typingscore/pkg/backend"
	"typingscore/pkg/config"
	"typingscore/pkg/store"
	"typingscore/pkg/submission"
	"typingscore/process/watch"
)

func main() {
	dir := flag.String("dir", "inbox", "directory to scan for result screenshots")
	userID := flag.String("user-id", "", "user id for files without a <user>_ prefix")
	channelID := flag.String("channel-id", "watch", "channel id recorded with each submission")
	keepWatching := flag.Bool("watch", true, "keep watching the directory after the initial scan")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	verbose := flag.Bool("verbose", false, "log every processed file")
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

	pipeline, err := backend.NewPipeline(ctx, cfg, store.New(db))
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	w := watch.New(*dir, pipeline, submission.Identity{UserID: *userID, ChannelID: *channelID})
	if *workers > 0 {
		w.Workers = *workers
	}
	w.Verbose = *verbose

	w.Scan(ctx)
	if !*keepWatching {
		return
	}
	if err := w.Watch(ctx); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}
