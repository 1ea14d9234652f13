// Package watch ingests screenshots dropped into a directory.
package watch

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"

	"typingscore/pkg/submission"
)

// Submitter is the part of submission.Pipeline the watcher needs.
type Submitter interface {
	Submit(ctx context.Context, id submission.Identity, imageRef string) (submission.Outcome, error)
}

// Watcher submits every image in Dir and moves it to ProcessedDir or FailedDir
// afterwards. A file named "<user>_<rest>.png" is submitted as that user; other
// files use Identity.
type Watcher struct {
	Dir          string
	ProcessedDir string
	FailedDir    string
	Identity     submission.Identity
	Submitter    Submitter
	Workers      int
	// Debounce is how long a new file must stay unchanged before it is read.
	Debounce time.Duration
	// MaxArchiveBytes bounds archived files; larger images are downscaled.
	MaxArchiveBytes int64
	Verbose         bool
}

// New returns a watcher with the default worker count and debounce.
func New(dir string, s Submitter, id submission.Identity) *Watcher {
	return &Watcher{
		Dir:             dir,
		ProcessedDir:    filepath.Join(dir, "processed"),
		FailedDir:       filepath.Join(dir, "failed"),
		Identity:        id,
		Submitter:       s,
		Workers:         runtime.NumCPU(),
		Debounce:        300 * time.Millisecond,
		MaxArchiveBytes: 1_000_000,
	}
}

// Scan submits the images already in Dir and returns when all are done.
func (w *Watcher) Scan(ctx context.Context) {
	files := ListImageFiles(w.Dir)
	log.Printf("Scanning %d files (workers=%d)", len(files), w.workers())
	ch := make(chan string, len(files))
	for _, f := range files {
		ch <- f
	}
	close(ch)
	w.runWorkerPool(ctx, ch)
}

// Watch submits new images until ctx is cancelled. Files are picked up once
// no create or write event was seen for Debounce.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", w.Dir)

	fileCh := make(chan string, 256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.runWorkerPool(ctx, fileCh)
	}()

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()
	var loopErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-fw.Events:
			if !ok {
				break loop
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				name := filepath.Base(ev.Name)
				if isSupportedExt(name) {
					pending[name] = time.Now()
				}
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > debounce {
					fileCh <- name
					delete(pending, name)
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				break loop
			}
			log.Printf("watch error: %v", err)
			loopErr = err
		}
	}
	close(fileCh)
	<-done
	if ctx.Err() != nil {
		return nil
	}
	return loopErr
}

func (w *Watcher) workers() int {
	if w.Workers <= 0 {
		return runtime.NumCPU()
	}
	return w.Workers
}

func (w *Watcher) runWorkerPool(ctx context.Context, files <-chan string) {
	var wg sync.WaitGroup
	for i := 0; i < w.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range files {
				if ctx.Err() != nil {
					continue
				}
				w.processFile(ctx, name)
			}
		}()
	}
	wg.Wait()
}

func (w *Watcher) processFile(ctx context.Context, name string) {
	full := filepath.Join(w.Dir, name)
	id := w.identityFor(name)
	out, err := w.Submitter.Submit(ctx, id, full)
	dest := w.ProcessedDir
	if err != nil {
		log.Printf("ingest %s user=%s: %s (%v)", name, id.UserID, submission.Message(err), err)
		dest = w.FailedDir
	} else if w.Verbose {
		log.Printf("ingest %s user=%s level=%d score=%d stored=%v", name, id.UserID, out.Fields.Level, out.Score, out.Stored)
	}
	if err := archive(full, dest, name, w.MaxArchiveBytes); err != nil {
		log.Printf("WARN archive %s failed: %v", name, err)
	}
}

func (w *Watcher) identityFor(name string) submission.Identity {
	id := w.Identity
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.Index(base, "_"); i > 0 {
		id.UserID = base[:i]
		id.Username = ""
	}
	return id
}

// ListImageFiles returns the sorted names of supported images in dir.
func ListImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return true
	}
	return false
}

// archive moves src into dir, downscaling images larger than maxBytes.
func archive(src, dir, name string, maxBytes int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, name)
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if maxBytes <= 0 || fi.Size() <= maxBytes {
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
		return copyRemove(src, dst)
	}
	img, err := imaging.Open(src)
	if err != nil {
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
		return copyRemove(src, dst)
	}
	// file size roughly follows pixel area
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	scale = math.Max(0.1, math.Min(scale, 0.95))
	b := img.Bounds()
	newW := int(math.Max(1, math.Round(float64(b.Dx())*scale)))
	img = imaging.Resize(img, newW, 0, imaging.Lanczos)
	if err := imaging.Save(img, dst); err != nil {
		return fmt.Errorf("save archived image: %w", err)
	}
	return os.Remove(src)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
