package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"typingscore/pkg/ocr"
	"typingscore/pkg/submission"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	calls map[string]submission.Identity
	fail  map[string]bool
}

func (r *recordingSubmitter) Submit(_ context.Context, id submission.Identity, ref string) (submission.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := filepath.Base(ref)
	r.calls[name] = id
	if r.fail[name] {
		return submission.Outcome{}, errors.Join(ocr.ErrRecognition, errors.New("job failed"))
	}
	return submission.Outcome{Score: 100}, nil
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("not really an image"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestScanSubmitsAndArchives(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1234_run.png")
	writeFile(t, dir, "shot.jpg")
	writeFile(t, dir, "bad.png")
	writeFile(t, dir, "notes.txt")

	sub := &recordingSubmitter{calls: map[string]submission.Identity{}, fail: map[string]bool{"bad.png": true}}
	w := New(dir, sub, submission.Identity{UserID: "default", ChannelID: "c-9"})
	w.Workers = 2
	w.Scan(context.Background())

	if len(sub.calls) != 3 {
		t.Fatalf("expected 3 submissions, got %v", sub.calls)
	}
	if id := sub.calls["1234_run.png"]; id.UserID != "1234" || id.ChannelID != "c-9" {
		t.Fatalf("prefixed identity = %+v", id)
	}
	if id := sub.calls["shot.jpg"]; id.UserID != "default" {
		t.Fatalf("default identity = %+v", id)
	}
	for _, p := range []string{
		filepath.Join(dir, "processed", "1234_run.png"),
		filepath.Join(dir, "processed", "shot.jpg"),
		filepath.Join(dir, "failed", "bad.png"),
		filepath.Join(dir, "notes.txt"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s: %v", p, err)
		}
	}
	if left := ListImageFiles(dir); len(left) != 0 {
		t.Fatalf("images left in inbox: %v", left)
	}
}

func TestIsSupportedExt(t *testing.T) {
	cases := map[string]bool{
		"a.PNG":       true,
		"a.jpeg":      true,
		"a.webp":      true,
		".hidden.png": false,
		"a.txt":       false,
		"a":           false,
	}
	for name, want := range cases {
		if got := isSupportedExt(name); got != want {
			t.Fatalf("isSupportedExt(%q) = %v, want %v", name, got, want)
		}
	}
}
