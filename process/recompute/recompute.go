// Package recompute re-derives every stored score from its stored inputs.
package recompute

import (
	"context"
	"fmt"
	"log"

	"typingscore/pkg/score"
	"typingscore/pkg/store"
)

// Beginner opens the transaction a pass runs in.
type Beginner interface {
	Begin(ctx context.Context) (store.Tx, error)
}

// Counts summarises a pass.
type Counts struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
}

// Service recomputes scores under one transaction. Either every stale row is
// updated or none is.
type Service struct {
	Store Beginner
	// MaxRetries is how many extra passes are attempted after a serialization
	// failure or deadlock.
	MaxRetries int
	// DryRun counts stale rows and rolls back instead of committing.
	DryRun bool
}

// New returns a service with two retries.
func New(s Beginner) *Service {
	return &Service{Store: s, MaxRetries: 2}
}

// Run recomputes every submission's score and writes only the rows whose
// stored score differs. Running it twice in a row updates nothing the second time.
func (s *Service) Run(ctx context.Context) (Counts, error) {
	var (
		counts Counts
		err    error
	)
	for attempt := 0; ; attempt++ {
		counts, err = s.pass(ctx)
		if err == nil || !store.IsRetryable(err) || attempt >= s.MaxRetries || ctx.Err() != nil {
			break
		}
		log.Printf("recompute: retrying after conflict attempt=%d: %v", attempt+1, err)
	}
	if err != nil {
		return Counts{}, err
	}
	log.Printf("recompute: total=%d updated=%d dry_run=%v", counts.Total, counts.Updated, s.DryRun)
	return counts, nil
}

func (s *Service) pass(ctx context.Context) (Counts, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("recompute: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.LockAll(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("recompute: %w", err)
	}
	counts := Counts{Total: len(rows)}
	for _, r := range rows {
		want := score.Calculate(r.Speed, r.Accuracy, r.Miss, r.ContinuousMiss)
		if want == r.Score {
			continue
		}
		if !s.DryRun {
			if err := tx.UpdateScore(ctx, r.ID, want); err != nil {
				return Counts{}, fmt.Errorf("recompute: %w", err)
			}
		}
		counts.Updated++
	}
	if s.DryRun {
		return counts, nil
	}
	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("recompute: %w", err)
	}
	return counts, nil
}
