package ocr

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultPollMaxAttempts = 60
	DefaultPollTimeout     = 5 * time.Minute
)

// Poller drives a recognition job from submission to a terminal state.
type Poller struct {
	Provider    Provider
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration

	wait func(ctx context.Context, d time.Duration) error
}

// NewPoller returns a poller with the default interval and bounds.
func NewPoller(p Provider) *Poller {
	return &Poller{
		Provider:    p,
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultPollMaxAttempts,
		Timeout:     DefaultPollTimeout,
	}
}

// Run submits imageURL and polls until the job succeeds, fails, or the attempt
// or time budget is spent. Zero MaxAttempts or Timeout disables that bound.
func (p *Poller) Run(ctx context.Context, imageURL string) ([]Line, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	name := p.Provider.Name()
	jobID, err := p.Provider.Submit(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: submit to %s: %v", ErrRecognition, name, err)
	}
	log.Printf("ocr job submitted provider=%s job=%s", name, jobID)

	wait := p.wait
	if wait == nil {
		wait = sleepCtx
	}
	for attempt := 1; ; attempt++ {
		st, err := p.Provider.Poll(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, p.ctxErr(ctx, jobID, attempt)
			}
			return nil, fmt.Errorf("%w: poll %s job %s: %v", ErrRecognition, name, jobID, err)
		}
		switch st.State {
		case JobSucceeded:
			log.Printf("ocr job done provider=%s job=%s polls=%d lines=%d", name, jobID, attempt, len(st.Lines))
			return st.Lines, nil
		case JobFailed:
			return nil, fmt.Errorf("%w: %s job %s failed: %s", ErrRecognition, name, jobID, st.Message)
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return nil, fmt.Errorf("%w: job %s still %s after %d polls", ErrPollTimeout, jobID, st.State, attempt)
		}
		if err := wait(ctx, p.Interval); err != nil {
			return nil, p.ctxErr(ctx, jobID, attempt)
		}
	}
}

func (p *Poller) ctxErr(ctx context.Context, jobID string, attempt int) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: job %s after %d polls", ErrPollTimeout, jobID, attempt)
	}
	return fmt.Errorf("poll job %s: %w", jobID, ctx.Err())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
