package ocr

import (
	"context"
	"errors"
	"testing"
)

func resultLines() []Line {
	return []Line{
		box("レベル5", 300, 160),
		box("300文字", 300, 300),
		box("98.5%", 780, 300),
		box("3回", 300, 420),
		box("1回", 780, 420),
		box("もう一度", 640, 650),
	}
}

func TestExtractFields(t *testing.T) {
	tmpl, err := DefaultTemplate()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	res, err := ExtractFields(resultLines(), tmpl)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	f, err := res.Validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := Fields{Level: 5, CharCount: 300, AccuracyRate: 98.5, MistypeCount: 3, ContinuousMistypeCount: 1}
	if f != want {
		t.Fatalf("got %+v, want %+v", f, want)
	}
}

func TestExtractFieldsMissingRegion(t *testing.T) {
	tmpl, _ := DefaultTemplate()
	lines := resultLines()[:3]
	_, err := ExtractFields(lines, tmpl)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != FieldMistypeCount || fe.Reason != ReasonRegionNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
	if err.Error() != "mistype count not extracted: region not found" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestExtractFieldsOptionalRegion(t *testing.T) {
	tmpl, _ := DefaultTemplate()
	lines := resultLines()[:4]
	res, err := ExtractFields(lines, tmpl)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.ContinuousMistypeCount != nil {
		t.Fatalf("continuous mistype count should be absent")
	}
}

func TestGeometricExtractorAnalyze(t *testing.T) {
	tmpl, _ := DefaultTemplate()
	prov := &scriptedProvider{states: []JobStatus{{State: JobRunning}, {State: JobSucceeded, Lines: resultLines()}}}
	p := NewPoller(prov)
	p.wait = noWait
	res, err := NewGeometricExtractor(p, tmpl).Analyze(context.Background(), "https://cdn.example.test/r.png")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Level == nil || *res.Level != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
}
