package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"typingscore/models"
	"typingscore/pkg/ocr"
	"typingscore/pkg/store"
)

type fakeRepo struct {
	inserted []models.Submission
	err      error
}

func (f *fakeRepo) Insert(_ context.Context, sub *models.Submission) error {
	if f.err != nil {
		return f.err
	}
	sub.ID = uint(len(f.inserted) + 1)
	f.inserted = append(f.inserted, *sub)
	return nil
}

type fakeAudit struct {
	shots []models.Screenshot
}

func (f *fakeAudit) RecordScreenshot(_ context.Context, shot *models.Screenshot) error {
	f.shots = append(f.shots, *shot)
	return nil
}

type fakeExtractor struct {
	res   ocr.Result
	err   error
	calls int
}

func (f *fakeExtractor) Analyze(context.Context, string) (ocr.Result, error) {
	f.calls++
	return f.res, f.err
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func result(level, chars int, rate float64, miss int) ocr.Result {
	return ocr.Result{
		Level:        intp(level),
		CharCount:    intp(chars),
		AccuracyRate: floatp(rate),
		MistypeCount: intp(miss),
	}
}

var alice = Identity{UserID: "u-1", Username: "alice", ChannelID: "c-1"}

func TestProcessBelowQualifyingLevelNotStored(t *testing.T) {
	repo := &fakeRepo{}
	p := &Pipeline{Repo: repo, Policy: DefaultPolicy()}
	out, err := p.Process(context.Background(), alice, result(3, 300, 98.5, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stored || out.Qualified {
		t.Fatalf("level 3 must not qualify: %+v", out)
	}
	if out.Score != 296 {
		t.Fatalf("score = %d, want 296", out.Score)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("expected no insert, got %d", len(repo.inserted))
	}
}

func TestProcessQualifyingLevelStoredOnce(t *testing.T) {
	repo := &fakeRepo{}
	p := &Pipeline{Repo: repo, Policy: DefaultPolicy()}
	res := result(5, 300, 98.5, 3)
	res.ContinuousMistypeCount = intp(1)
	out, err := p.Process(context.Background(), alice, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Stored || out.Submission == nil {
		t.Fatalf("expected stored outcome: %+v", out)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(repo.inserted))
	}
	got := repo.inserted[0]
	if got.UserID != "u-1" || got.ChannelID != "c-1" {
		t.Fatalf("identity not carried: %+v", got)
	}
	if got.Speed != 300 || got.Accuracy != 0.985 {
		t.Fatalf("speed/accuracy = %v/%v, want 300/0.985", got.Speed, got.Accuracy)
	}
	if got.Miss != 3 || got.ContinuousMiss != 1 {
		t.Fatalf("miss counters = %v/%v", got.Miss, got.ContinuousMiss)
	}
	if got.Score != 296 {
		t.Fatalf("score = %d, want 296", got.Score)
	}
}

func TestProcessPrivilegedUserNotStored(t *testing.T) {
	for _, who := range []string{"u-1", "alice"} {
		repo := &fakeRepo{}
		p := &Pipeline{Repo: repo, Policy: Policy{QualifyingLevel: 5, PrivilegedUsers: []string{who}}}
		out, err := p.Process(context.Background(), alice, result(5, 300, 98.5, 3))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", who, err)
		}
		if out.Stored || !out.Privileged {
			t.Fatalf("%s: privileged result stored: %+v", who, out)
		}
		if !out.Qualified || out.Score != 296 {
			t.Fatalf("%s: privileged result still scored and qualified: %+v", who, out)
		}
		if len(repo.inserted) != 0 {
			t.Fatalf("%s: expected no insert", who)
		}
	}
}

func TestProcessValidationErrorDoesNoIO(t *testing.T) {
	repo := &fakeRepo{}
	p := &Pipeline{Repo: repo, Policy: DefaultPolicy()}
	res := result(5, 300, 98.5, 0)
	res.MistypeCount = nil
	_, err := p.Process(context.Background(), alice, res)
	var ve *ocr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Missing) != 1 || ve.Missing[0] != ocr.FieldMistypeCount {
		t.Fatalf("missing = %v", ve.Missing)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("expected no insert on validation failure")
	}
}

func TestProcessInvalidAccuracy(t *testing.T) {
	repo := &fakeRepo{}
	p := &Pipeline{Repo: repo, Policy: DefaultPolicy()}
	_, err := p.Process(context.Background(), alice, result(5, 300, 120, 0))
	var ve *ocr.ValidationError
	if !errors.As(err, &ve) || len(ve.Invalid) != 1 {
		t.Fatalf("expected invalid accuracy, got %v", err)
	}
}

func TestProcessPersistenceError(t *testing.T) {
	repo := &fakeRepo{err: fmt.Errorf("%w: insert submission: connection refused", store.ErrPersistence)}
	p := &Pipeline{Repo: repo, Policy: DefaultPolicy()}
	_, err := p.Process(context.Background(), alice, result(5, 300, 98.5, 3))
	if !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if Message(err) != "the result could not be saved" {
		t.Fatalf("message = %q", Message(err))
	}
}

func TestSubmitRecordsAudit(t *testing.T) {
	repo := &fakeRepo{}
	audit := &fakeAudit{}
	ext := &fakeExtractor{res: result(5, 300, 98.5, 3)}
	p := &Pipeline{Extractor: ext, Repo: repo, Audit: audit, Policy: DefaultPolicy(), Backend: "fake"}
	out, err := p.Submit(context.Background(), alice, "https://example.test/a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Stored {
		t.Fatalf("expected stored")
	}
	if len(audit.shots) != 1 {
		t.Fatalf("expected one audit row, got %d", len(audit.shots))
	}
	shot := audit.shots[0]
	if shot.Failed || shot.Backend != "fake" || shot.SubmissionID == nil || *shot.SubmissionID != out.Submission.ID {
		t.Fatalf("unexpected audit row: %+v", shot)
	}
}

func TestSubmitExtractionFailure(t *testing.T) {
	repo := &fakeRepo{}
	audit := &fakeAudit{}
	ext := &fakeExtractor{err: &ocr.FieldError{Field: ocr.FieldMistypeCount, Reason: ocr.ReasonRegionNotFound}}
	p := &Pipeline{Extractor: ext, Repo: repo, Audit: audit, Policy: DefaultPolicy()}
	_, err := p.Submit(context.Background(), alice, "https://example.test/a.png")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(Message(err), "mistype count not extracted") {
		t.Fatalf("message = %q", Message(err))
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("expected no insert")
	}
	if len(audit.shots) != 1 || !audit.shots[0].Failed {
		t.Fatalf("expected failed audit row, got %+v", audit.shots)
	}
}

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("poll: %w", ocr.ErrPollTimeout), "the recognition service did not finish in time"},
		{fmt.Errorf("%w: job failed", ocr.ErrRecognition), "image analysis failed"},
		{errors.New("boom"), "unexpected error while processing the screenshot"},
	}
	for _, c := range cases {
		if got := Message(c.err); got != c.want {
			t.Fatalf("Message(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestOutcomeNotice(t *testing.T) {
	out := Outcome{Score: 296, Fields: ocr.Fields{Level: 3}}
	if got := out.Notice(5); !strings.Contains(got, "does not qualify") {
		t.Fatalf("notice = %q", got)
	}
	out.Qualified, out.Stored = true, true
	if got := out.Notice(5); got != "score 296 recorded" {
		t.Fatalf("notice = %q", got)
	}
}
