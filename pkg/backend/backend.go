// Package backend selects the recognition backend named by the configuration.
package backend

import (
	"context"
	"fmt"
	"log"
	"time"

	"typingscore/pkg/config"
	"typingscore/pkg/ocr"
	"typingscore/pkg/ocr/gemini"
	"typingscore/pkg/ocr/tesseract"
	"typingscore/pkg/store"
	"typingscore/pkg/submission"
)

// NewExtractor returns the extractor for cfg.Backend.
func NewExtractor(ctx context.Context, cfg config.Config) (ocr.Extractor, error) {
	log.Printf("selecting recognition backend: %s", cfg.Backend)
	switch cfg.Backend {
	case config.BackendGemini:
		ext, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return ext, nil
	case config.BackendReadAPI, config.BackendTesseract:
		tmpl, err := ocr.LoadTemplate(cfg.TemplatePath)
		if err != nil {
			return nil, err
		}
		provider, err := NewProvider(cfg, tmpl)
		if err != nil {
			return nil, err
		}
		return ocr.NewGeometricExtractor(newPoller(cfg, provider), tmpl), nil
	default:
		return nil, fmt.Errorf("no recognition backend named %q", cfg.Backend)
	}
}

// NewProvider returns the asynchronous line provider for cfg.Backend.
func NewProvider(cfg config.Config, tmpl *ocr.Template) (ocr.Provider, error) {
	switch cfg.Backend {
	case config.BackendReadAPI:
		if cfg.ReadAPIEndpoint == "" || cfg.ReadAPIKey == "" {
			return nil, fmt.Errorf("readapi backend requires READ_API_ENDPOINT and READ_API_KEY")
		}
		return ocr.NewReadAPIProvider(cfg.ReadAPIEndpoint, cfg.ReadAPIKey), nil
	case config.BackendTesseract:
		return tesseract.NewProvider(cfg.TesseractLangs, tmpl.Width), nil
	default:
		return nil, fmt.Errorf("backend %q has no line provider", cfg.Backend)
	}
}

func newPoller(cfg config.Config, p ocr.Provider) *ocr.Poller {
	poller := ocr.NewPoller(p)
	poller.Interval = cfg.PollInterval
	poller.MaxAttempts = cfg.PollMaxAttempts
	poller.Timeout = cfg.PollTimeout
	if p.Name() == config.BackendTesseract && poller.Interval > 500*time.Millisecond {
		// local jobs finish in well under a second
		poller.Interval = 500 * time.Millisecond
	}
	return poller
}

// NewPipeline wires the configured extractor, st and the gating policy.
func NewPipeline(ctx context.Context, cfg config.Config, st *store.Store) (*submission.Pipeline, error) {
	ext, err := NewExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &submission.Pipeline{
		Extractor: ext,
		Repo:      st,
		Audit:     st,
		Policy:    cfg.Policy(),
		Backend:   cfg.Backend,
	}, nil
}
