package recompute

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"typingscore/models"
	"typingscore/pkg/score"
	"typingscore/pkg/store"
)

// memStore keeps committed rows; each transaction works on a copy.
type memStore struct {
	rows      []models.Submission
	begins    int
	commits   int
	rollbacks int
	failAt    int // UpdateScore call (1-based) that fails; 0 never
	lockErrs  []error
}

func (m *memStore) Begin(context.Context) (store.Tx, error) {
	m.begins++
	cp := make([]models.Submission, len(m.rows))
	copy(cp, m.rows)
	return &memTx{m: m, rows: cp}, nil
}

type memTx struct {
	m       *memStore
	rows    []models.Submission
	updates int
	done    bool
}

func (t *memTx) LockAll(context.Context) ([]models.Submission, error) {
	if len(t.m.lockErrs) > 0 {
		err := t.m.lockErrs[0]
		t.m.lockErrs = t.m.lockErrs[1:]
		return nil, err
	}
	out := make([]models.Submission, len(t.rows))
	copy(out, t.rows)
	return out, nil
}

func (t *memTx) UpdateScore(_ context.Context, id uint, sc int64) error {
	t.updates++
	if t.m.failAt != 0 && t.updates == t.m.failAt {
		return fmt.Errorf("%w: update score id=%d: connection reset", store.ErrPersistence, id)
	}
	for i := range t.rows {
		if t.rows[i].ID == id {
			t.rows[i].Score = sc
			return nil
		}
	}
	return fmt.Errorf("%w: update score id=%d: row not found", store.ErrPersistence, id)
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.m.commits++
	t.m.rows = t.rows
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.m.rollbacks++
	return nil
}

func seed(n int, stale ...int) *memStore {
	m := &memStore{}
	isStale := map[int]bool{}
	for _, s := range stale {
		isStale[s] = true
	}
	for i := 0; i < n; i++ {
		sub := models.Submission{
			ID:       uint(i + 1),
			UserID:   fmt.Sprintf("u-%d", i),
			Speed:    float64(200 + 10*i),
			Accuracy: 0.95,
		}
		sub.Score = score.Calculate(sub.Speed, sub.Accuracy, 0, 0)
		if isStale[i] {
			sub.Score = 1
		}
		m.rows = append(m.rows, sub)
	}
	return m
}

func TestRunUpdatesOnlyStaleRows(t *testing.T) {
	m := seed(10, 1, 4, 7)
	svc := New(m)
	counts, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Total != 10 || counts.Updated != 3 {
		t.Fatalf("counts = %+v, want total 10 updated 3", counts)
	}
	for _, r := range m.rows {
		if r.Score != score.Calculate(r.Speed, r.Accuracy, 0, 0) {
			t.Fatalf("row %d not recomputed: %d", r.ID, r.Score)
		}
	}

	counts, err = svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counts.Updated != 0 {
		t.Fatalf("second run updated %d rows, want 0", counts.Updated)
	}
}

func TestRunFailureRollsBackWholePass(t *testing.T) {
	m := seed(10, 1, 4, 7)
	m.failAt = 2
	_, err := New(m).Run(context.Background())
	if !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if m.commits != 0 || m.rollbacks != 1 {
		t.Fatalf("commits=%d rollbacks=%d, want 0/1", m.commits, m.rollbacks)
	}
	if m.rows[1].Score != 1 || m.rows[4].Score != 1 {
		t.Fatalf("committed rows changed after failed pass")
	}
}

func TestRunDryRunDoesNotCommit(t *testing.T) {
	m := seed(5, 0)
	svc := New(m)
	svc.DryRun = true
	counts, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Updated != 1 || m.commits != 0 || m.rows[0].Score != 1 {
		t.Fatalf("dry run changed state: counts=%+v commits=%d", counts, m.commits)
	}
}

func TestRunRetriesSerializationFailure(t *testing.T) {
	m := seed(3, 2)
	m.lockErrs = []error{fmt.Errorf("%w: lock submissions: %w", store.ErrPersistence, &pgconn.PgError{Code: "40001"})}
	counts, err := New(m).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.begins != 2 || counts.Updated != 1 {
		t.Fatalf("begins=%d counts=%+v", m.begins, counts)
	}
}

func TestRunDoesNotRetryOtherErrors(t *testing.T) {
	m := seed(3)
	m.lockErrs = []error{errors.New("relation does not exist")}
	if _, err := New(m).Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if m.begins != 1 {
		t.Fatalf("begins = %d, want 1", m.begins)
	}
}
