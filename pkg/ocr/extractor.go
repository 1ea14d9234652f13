package ocr

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

// Extractor turns a screenshot into a Result. Implementations return
// ErrRecognition, ErrPollTimeout or *FieldError on failure and never return a
// partially filled Result together with a nil error.
type Extractor interface {
	Analyze(ctx context.Context, imageURL string) (Result, error)
}

// GeometricExtractor reads fields by matching recognized lines against the
// regions of a fixed template.
type GeometricExtractor struct {
	Poller   *Poller
	Template *Template
}

// NewGeometricExtractor wires a provider and template into an Extractor.
func NewGeometricExtractor(p *Poller, t *Template) *GeometricExtractor {
	return &GeometricExtractor{Poller: p, Template: t}
}

// Analyze runs the recognition job for imageURL and extracts every field.
func (g *GeometricExtractor) Analyze(ctx context.Context, imageURL string) (Result, error) {
	lines, err := g.Poller.Run(ctx, imageURL)
	if err != nil {
		return Result{}, err
	}
	log.Printf("OCR lines template=%s n=%d text=%q", g.Template.Name, len(lines), snippet(joinLines(lines), 180))
	return ExtractFields(lines, g.Template)
}

// ExtractFields assigns lines to the template's regions and parses each field.
// Regions are evaluated concurrently; the error reported is the first one in
// template order.
func ExtractFields(lines []Line, t *Template) (Result, error) {
	values := make([]float64, len(t.Regions))
	found := make([]bool, len(t.Regions))
	errs := make([]error, len(t.Regions))

	var g errgroup.Group
	for i, region := range t.Regions {
		g.Go(func() error {
			line, ok := FirstMatch(lines, region)
			if !ok {
				if !region.Optional {
					errs[i] = &FieldError{Field: region.Field, Reason: ReasonRegionNotFound}
				}
				return nil
			}
			v, err := ParseField(region.Field, line.Text)
			if err != nil {
				if !region.Optional {
					errs[i] = err
				}
				return nil
			}
			values[i], found[i] = v, true
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return Result{}, err
		}
	}
	var res Result
	for i, region := range t.Regions {
		if found[i] {
			res.Set(region.Field, values[i])
		}
	}
	return res, nil
}
