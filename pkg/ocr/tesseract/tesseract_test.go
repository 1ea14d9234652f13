package tesseract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"typingscore/pkg/ocr"
)

func writePNG(t *testing.T, w, h int, bg color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, bg)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestBoxToLineScales(t *testing.T) {
	l := boxToLine("レベル5", 100, 200, 300, 260, 0.5)
	want := []float64{50, 100, 150, 100, 150, 130, 50, 130}
	for i := range want {
		if l.BoundingBox[i] != want[i] {
			t.Fatalf("box = %v, want %v", l.BoundingBox, want)
		}
	}
	c, ok := l.Center()
	if !ok || c.X != 100 || c.Y != 115 {
		t.Fatalf("center = %+v", c)
	}
}

func TestProviderJobLifecycle(t *testing.T) {
	path := writePNG(t, 16, 16, color.Black)
	p := NewProvider(nil, 1280)
	release := make(chan struct{})
	p.recognize = func(ctx context.Context, img []byte) ([]ocr.Line, error) {
		<-release
		return []ocr.Line{{Text: "300文字"}}, nil
	}
	id, err := p.Submit(context.Background(), path)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	st, err := p.Poll(context.Background(), id)
	if err != nil || st.State.Terminal() {
		t.Fatalf("expected a running job, got %+v err=%v", st, err)
	}
	close(release)

	poller := ocr.NewPoller(p)
	poller.Interval = 5 * time.Millisecond
	lines, err := poller.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "300文字" {
		t.Fatalf("unexpected lines %+v", lines)
	}
}

func TestProviderFailedJob(t *testing.T) {
	path := writePNG(t, 16, 16, color.White)
	p := NewProvider([]string{"eng"}, 0)
	p.recognize = func(context.Context, []byte) ([]ocr.Line, error) {
		return nil, errors.New("tessdata missing")
	}
	poller := ocr.NewPoller(p)
	poller.Interval = 5 * time.Millisecond
	_, err := poller.Run(context.Background(), path)
	if !errors.Is(err, ocr.ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}
}

func TestPollUnknownJob(t *testing.T) {
	if _, err := NewProvider(nil, 0).Poll(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown job")
	}
}

func TestPreprocessUpscalesAndBinarizes(t *testing.T) {
	path := writePNG(t, 640, 360, color.RGBA{R: 20, G: 20, B: 40, A: 255})
	data, _ := os.ReadFile(path)
	out, scale, err := Preprocess(data, 640)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if scale != 0.64 {
		t.Fatalf("scale = %v, want 0.64", scale)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 1000 {
		t.Fatalf("width = %d", img.Bounds().Dx())
	}
	// dark panel is inverted, so the background ends up white
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Fatalf("pixel = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}
