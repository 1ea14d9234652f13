package ocr

import (
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/text/width"
)

// Field names a value printed on the result screen.
type Field string

const (
	FieldLevel                  Field = "level"
	FieldCharCount              Field = "charCount"
	FieldAccuracyRate           Field = "accuracyRate"
	FieldMistypeCount           Field = "mistypeCount"
	FieldContinuousMistypeCount Field = "continuousMistypeCount"
)

// RequiredFields must be present before a result can be scored.
var RequiredFields = []Field{FieldLevel, FieldCharCount, FieldAccuracyRate, FieldMistypeCount}

var fieldLabels = map[Field]string{
	FieldLevel:                  "level",
	FieldCharCount:              "character count",
	FieldAccuracyRate:           "accuracy rate",
	FieldMistypeCount:           "mistype count",
	FieldContinuousMistypeCount: "continuous mistype count",
}

// Label is the human readable field name used in error messages.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// Known reports whether f is one of the fields the parser understands.
func (f Field) Known() bool {
	_, ok := fieldPatterns[f]
	return ok
}

var fieldPatterns = map[Field]*regexp.Regexp{
	FieldLevel:                  regexp.MustCompile(`レベル\s*(\d+)`),
	FieldCharCount:              regexp.MustCompile(`(\d+)\s*文字`),
	FieldAccuracyRate:           regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`),
	FieldMistypeCount:           regexp.MustCompile(`(\d+)\s*回`),
	FieldContinuousMistypeCount: regexp.MustCompile(`(\d+)\s*回`),
}

// ParseField reads the value of field from a recognized line's text. Full-width
// digits and symbols are folded to ASCII first.
func ParseField(field Field, text string) (float64, error) {
	re, ok := fieldPatterns[field]
	if !ok {
		return 0, fmt.Errorf("unknown field %q", field)
	}
	folded := normalizeOCRText(width.Fold.String(text))
	m := re.FindStringSubmatch(folded)
	if len(m) < 2 {
		return 0, &FieldError{Field: field, Reason: ReasonPatternNotFound}
	}
	if field == FieldAccuracyRate {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, &FieldError{Field: field, Reason: ReasonPatternNotFound}
		}
		return v, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &FieldError{Field: field, Reason: ReasonPatternNotFound}
	}
	return float64(n), nil
}

// Result is the raw outcome of analysing one screenshot. Nil fields could not be read.
type Result struct {
	Level                  *int     `json:"level,omitempty"`
	CharCount              *int     `json:"charCount,omitempty"`
	AccuracyRate           *float64 `json:"accuracyRate,omitempty"`
	MistypeCount           *int     `json:"mistypeCount,omitempty"`
	ContinuousMistypeCount *int     `json:"continuousMistypeCount,omitempty"`
}

// Fields is a validated Result.
type Fields struct {
	Level                  int     `json:"level"`
	CharCount              int     `json:"charCount"`
	AccuracyRate           float64 `json:"accuracyRate"`
	MistypeCount           int     `json:"mistypeCount"`
	ContinuousMistypeCount int     `json:"continuousMistypeCount"`
}

// Set stores v into the slot for field.
func (r *Result) Set(field Field, v float64) {
	n := int(v)
	switch field {
	case FieldLevel:
		r.Level = &n
	case FieldCharCount:
		r.CharCount = &n
	case FieldAccuracyRate:
		r.AccuracyRate = &v
	case FieldMistypeCount:
		r.MistypeCount = &n
	case FieldContinuousMistypeCount:
		r.ContinuousMistypeCount = &n
	}
}

func (r Result) has(field Field) bool {
	switch field {
	case FieldLevel:
		return r.Level != nil
	case FieldCharCount:
		return r.CharCount != nil
	case FieldAccuracyRate:
		return r.AccuracyRate != nil
	case FieldMistypeCount:
		return r.MistypeCount != nil
	case FieldContinuousMistypeCount:
		return r.ContinuousMistypeCount != nil
	}
	return false
}

// Validate checks that every required field is present and that the accuracy
// rate is a percentage. A missing continuous mistype count is read as zero.
func (r Result) Validate() (Fields, error) {
	var missing []Field
	for _, f := range RequiredFields {
		if !r.has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Fields{}, &ValidationError{Missing: missing}
	}
	if *r.AccuracyRate < 0 || *r.AccuracyRate > 100 {
		return Fields{}, &ValidationError{Invalid: []Field{FieldAccuracyRate}}
	}
	out := Fields{
		Level:        *r.Level,
		CharCount:    *r.CharCount,
		AccuracyRate: *r.AccuracyRate,
		MistypeCount: *r.MistypeCount,
	}
	if r.ContinuousMistypeCount != nil {
		out.ContinuousMistypeCount = *r.ContinuousMistypeCount
	}
	return out, nil
}
