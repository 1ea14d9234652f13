// Command cmd_debug_ocr runs the configured extractor on one screenshot and
// prints the fields, the score and whether it would be stored. Nothing is
// written to the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"typingscore/models"
	"typingscore/pkg/backend"
	"typingscore/pkg/config"
	"typingscore/pkg/submission"
)

// dryRepo accepts inserts without writing them anywhere.
type dryRepo struct{}

func (dryRepo) Insert(context.Context, *models.Submission) error { return nil }

func main() {
	f := flag.String("file", "", "image file or http(s) URL to analyse")
	user := flag.String("user-id", "debug", "user id used for the gating check")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	ext, err := backend.NewExtractor(ctx, cfg)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}
	res, err := ext.Analyze(ctx, *f)
	if err != nil {
		log.Fatalf("analyze: %s (%v)", submission.Message(err), err)
	}
	p := &submission.Pipeline{Repo: dryRepo{}, Policy: cfg.Policy(), Backend: cfg.Backend}
	out, err := p.Process(ctx, submission.Identity{UserID: *user}, res)
	if err != nil {
		log.Fatalf("process: %s", submission.Message(err))
	}
	fmt.Printf("backend=%s level=%d chars=%d accuracy=%.1f%% miss=%d continuous=%d\n",
		cfg.Backend, out.Fields.Level, out.Fields.CharCount, out.Fields.AccuracyRate,
		out.Fields.MistypeCount, out.Fields.ContinuousMistypeCount)
	fmt.Printf("score=%d qualified=%v privileged=%v would_store=%v\n", out.Score, out.Qualified, out.Privileged, out.Stored)
}
