package backend

import (
	"context"
	"testing"
	"time"

	"typingscore/pkg/config"
	"typingscore/pkg/ocr"
)

func TestNewExtractorReadAPI(t *testing.T) {
	cfg := config.Config{
		Backend:         config.BackendReadAPI,
		ReadAPIEndpoint: "https://vision.example.test",
		ReadAPIKey:      "k",
		PollInterval:    time.Second,
		PollMaxAttempts: 3,
		PollTimeout:     time.Minute,
	}
	ext, err := NewExtractor(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, ok := ext.(*ocr.GeometricExtractor)
	if !ok {
		t.Fatalf("expected geometric extractor, got %T", ext)
	}
	if g.Poller.MaxAttempts != 3 || g.Poller.Interval != time.Second {
		t.Fatalf("poller not configured: %+v", g.Poller)
	}
	if g.Poller.Provider.Name() != config.BackendReadAPI {
		t.Fatalf("provider = %s", g.Poller.Provider.Name())
	}
}

func TestNewExtractorReadAPIRequiresCredentials(t *testing.T) {
	if _, err := NewExtractor(context.Background(), config.Config{Backend: config.BackendReadAPI}); err == nil {
		t.Fatalf("expected error without endpoint and key")
	}
}

func TestNewExtractorTesseractUsesTemplateWidth(t *testing.T) {
	cfg := config.Config{Backend: config.BackendTesseract, PollInterval: 5 * time.Second}
	ext, err := NewExtractor(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := ext.(*ocr.GeometricExtractor)
	if g.Poller.Interval != 500*time.Millisecond {
		t.Fatalf("interval = %v", g.Poller.Interval)
	}
	if g.Poller.Provider.Name() != config.BackendTesseract {
		t.Fatalf("provider = %s", g.Poller.Provider.Name())
	}
}

func TestNewExtractorGeminiRequiresKey(t *testing.T) {
	if _, err := NewExtractor(context.Background(), config.Config{Backend: config.BackendGemini}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestNewExtractorUnknown(t *testing.T) {
	if _, err := NewExtractor(context.Background(), config.Config{Backend: "paper"}); err == nil {
		t.Fatalf("expected error")
	}
}
