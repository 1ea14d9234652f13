package submission

import (
	"errors"
	"fmt"

	"typingscore/pkg/ocr"
	"typingscore/pkg/store"
)

// Message renders err as a short text for the person who submitted the screenshot.
func Message(err error) string {
	var fe *ocr.FieldError
	var ve *ocr.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Error()
	case errors.As(err, &ve):
		return "the result is incomplete: " + ve.Error()
	case errors.Is(err, ocr.ErrPollTimeout):
		return "the recognition service did not finish in time"
	case errors.Is(err, ocr.ErrRecognition):
		return "image analysis failed"
	case errors.Is(err, store.ErrPersistence):
		return "the result could not be saved"
	}
	return "unexpected error while processing the screenshot"
}

// Notice describes the outcome in one line.
func (o Outcome) Notice(qualifyingLevel int) string {
	switch {
	case o.Stored:
		return fmt.Sprintf("score %d recorded", o.Score)
	case o.Privileged:
		return fmt.Sprintf("score %d (not recorded for this account)", o.Score)
	case !o.Qualified:
		return fmt.Sprintf("score %d: level %d does not qualify, only level %d results are ranked", o.Score, o.Fields.Level, qualifyingLevel)
	}
	return fmt.Sprintf("score %d", o.Score)
}
