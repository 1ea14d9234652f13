package gemini

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"typingscore/pkg/ocr"
)

type stubGenerator struct {
	text     string
	err      error
	mimeType string
}

func (s *stubGenerator) generate(_ context.Context, _ []byte, mimeType string) (string, error) {
	s.mimeType = mimeType
	return s.text, s.err
}

func TestDecodeResult(t *testing.T) {
	res, err := decodeResult(`{"level":5,"charCount":299.6,"accuracyRate":98.5,"mistypeCount":3}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	f, err := res.Validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := ocr.Fields{Level: 5, CharCount: 300, AccuracyRate: 98.5, MistypeCount: 3}
	if f != want {
		t.Fatalf("got %+v, want %+v", f, want)
	}
}

func TestDecodeResultWrappedInProse(t *testing.T) {
	res, err := decodeResult("Here is the result:\n```json\n{\"level\":4,\"charCount\":120,\"accuracyRate\":90,\"mistypeCount\":12}\n```")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Level == nil || *res.Level != 4 || *res.MistypeCount != 12 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDecodeResultMissingField(t *testing.T) {
	_, err := decodeResult(`{"level":5,"charCount":300,"accuracyRate":98.5}`)
	var fe *ocr.FieldError
	if !errors.As(err, &fe) || fe.Field != ocr.FieldMistypeCount {
		t.Fatalf("expected mistype count field error, got %v", err)
	}
}

func TestDecodeResultGarbage(t *testing.T) {
	if _, err := decodeResult("no json here"); !errors.Is(err, ocr.ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}
}

func TestAnalyzeWithStub(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	// PNG signature is enough for content sniffing
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gen := &stubGenerator{text: `{"level":5,"charCount":300,"accuracyRate":98.5,"mistypeCount":3}`}
	s := &StructuredExtractor{gen: gen}
	res, err := s.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if *res.CharCount != 300 || gen.mimeType != "image/png" {
		t.Fatalf("unexpected result %+v mime=%s", res, gen.mimeType)
	}

	gen.err = errors.New("quota")
	if _, err := s.Analyze(context.Background(), path); !errors.Is(err, ocr.ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}
