package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"typingscore/pkg/config"
	"typingscore/pkg/store"
	"typingscore/process/report"
)

func main() {
	limit := flag.Int("limit", store.DefaultLeaderboardSize, "number of users to list (0 for all)")
	userID := flag.String("user-id", "", "also list every stored submission of this user")
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
	if err := report.RunReport(context.Background(), os.Stdout, db, *limit, *userID); err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
}
