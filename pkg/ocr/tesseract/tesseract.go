// Package tesseract runs recognition locally with the gosseract client and
// exposes it through the same submit/poll contract as remote providers.
package tesseract

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/otiai10/gosseract/v2"

	"typingscore/pkg/ocr"
)

type job struct {
	status ocr.JobStatus
	done   time.Time
}

// Provider is an in-process recognition provider. Submit starts recognition in
// a goroutine and returns immediately; Poll reports the job state.
type Provider struct {
	Languages   []string
	TargetWidth int
	// Retention is how long finished jobs are kept for polling.
	Retention time.Duration
	Client    *http.Client

	recognize func(ctx context.Context, img []byte) ([]ocr.Line, error)

	mu   sync.Mutex
	jobs map[string]*job
}

// NewProvider returns a provider. targetWidth should match the template width
// so that line coordinates are in template space.
func NewProvider(languages []string, targetWidth int) *Provider {
	if len(languages) == 0 {
		languages = []string{"jpn", "eng"}
	}
	p := &Provider{
		Languages:   languages,
		TargetWidth: targetWidth,
		Retention:   10 * time.Minute,
		Client:      &http.Client{Timeout: 30 * time.Second},
		jobs:        map[string]*job{},
	}
	p.recognize = p.recognizeLines
	return p
}

func (p *Provider) Name() string { return "tesseract" }

// Submit loads the image and starts recognition.
func (p *Provider) Submit(ctx context.Context, imageURL string) (string, error) {
	data, _, err := ocr.FetchImage(ctx, p.Client, imageURL)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	p.mu.Lock()
	p.gc()
	p.jobs[id] = &job{status: ocr.JobStatus{State: ocr.JobSubmitted}}
	p.mu.Unlock()

	go p.run(id, data)
	return id, nil
}

func (p *Provider) run(id string, data []byte) {
	p.set(id, ocr.JobStatus{State: ocr.JobRunning})
	lines, err := p.recognize(context.Background(), data)
	if err != nil {
		log.Printf("tesseract job=%s failed: %v", id, err)
		p.set(id, ocr.JobStatus{State: ocr.JobFailed, Message: err.Error()})
		return
	}
	p.set(id, ocr.JobStatus{State: ocr.JobSucceeded, Lines: lines})
}

func (p *Provider) set(id string, st ocr.JobStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	j, ok := p.jobs[id]
	if !ok {
		return
	}
	j.status = st
	if st.State.Terminal() {
		j.done = time.Now()
	}
}

// Poll returns the current state of a job.
func (p *Provider) Poll(ctx context.Context, jobID string) (ocr.JobStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	j, ok := p.jobs[jobID]
	if !ok {
		return ocr.JobStatus{}, fmt.Errorf("unknown job %s", jobID)
	}
	return j.status, nil
}

// gc drops finished jobs older than Retention. Caller holds mu.
func (p *Provider) gc() {
	cutoff := time.Now().Add(-p.Retention)
	for id, j := range p.jobs {
		if !j.done.IsZero() && j.done.Before(cutoff) {
			delete(p.jobs, id)
		}
	}
}

func (p *Provider) recognizeLines(ctx context.Context, data []byte) ([]ocr.Line, error) {
	img, scale, err := Preprocess(data, p.TargetWidth)
	if err != nil {
		return nil, err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(p.Languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("set psm: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}
	lines := make([]ocr.Line, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, boxToLine(b.Word, b.Box.Min.X, b.Box.Min.Y, b.Box.Max.X, b.Box.Max.Y, scale))
	}
	return lines, nil
}

// boxToLine converts a pixel rectangle into the flattened clockwise corner
// form used by remote providers.
func boxToLine(text string, x0, y0, x1, y1 int, scale float64) ocr.Line {
	fx0, fy0 := float64(x0)*scale, float64(y0)*scale
	fx1, fy1 := float64(x1)*scale, float64(y1)*scale
	return ocr.Line{
		Text:        text,
		BoundingBox: []float64{fx0, fy0, fx1, fy0, fx1, fy1, fx0, fy1},
	}
}
