// Package submission turns an extracted typing result into a scored, gated and
// persisted submission.
package submission

import (
	"context"
	"fmt"
	"log"

	"typingscore/models"
	"typingscore/pkg/ocr"
	"typingscore/pkg/score"
)

// DefaultQualifyingLevel is the level a result must show to enter the leaderboard.
const DefaultQualifyingLevel = 5

// Identity is who submitted a screenshot and where.
type Identity struct {
	UserID    string
	Username  string
	ChannelID string
}

// Policy holds the gating rules.
type Policy struct {
	// QualifyingLevel is the exact level a result must have to be stored.
	QualifyingLevel int
	// PrivilegedUsers are user ids or usernames whose results are analysed and
	// scored but never stored.
	PrivilegedUsers []string
}

// DefaultPolicy stores level 5 results of every user.
func DefaultPolicy() Policy {
	return Policy{QualifyingLevel: DefaultQualifyingLevel}
}

func (p Policy) privileged(id Identity) bool {
	for _, u := range p.PrivilegedUsers {
		if u != "" && (u == id.UserID || u == id.Username) {
			return true
		}
	}
	return false
}

// Repository stores qualifying submissions.
type Repository interface {
	Insert(ctx context.Context, sub *models.Submission) error
}

// AuditLog records every analysed screenshot.
type AuditLog interface {
	RecordScreenshot(ctx context.Context, shot *models.Screenshot) error
}

// Outcome is what a submission produced.
type Outcome struct {
	Fields     ocr.Fields         `json:"fields"`
	Speed      float64            `json:"speed"`
	Accuracy   float64            `json:"accuracy"`
	Score      int64              `json:"score"`
	Qualified  bool               `json:"qualified"`
	Privileged bool               `json:"privileged"`
	Stored     bool               `json:"stored"`
	Submission *models.Submission `json:"submission,omitempty"`
}

// Pipeline analyses screenshots and persists qualifying results.
type Pipeline struct {
	Extractor ocr.Extractor
	Repo      Repository
	// Audit is optional.
	Audit   AuditLog
	Policy  Policy
	Backend string
}

// Submit analyses the screenshot at imageRef and processes the result.
func (p *Pipeline) Submit(ctx context.Context, id Identity, imageRef string) (Outcome, error) {
	res, err := p.Extractor.Analyze(ctx, imageRef)
	if err != nil {
		log.Printf("analyze failed user=%s image=%s: %v", id.UserID, imageRef, err)
		p.audit(ctx, id, imageRef, nil, err)
		return Outcome{}, err
	}
	out, err := p.Process(ctx, id, res)
	if err != nil {
		p.audit(ctx, id, imageRef, nil, err)
		return Outcome{}, err
	}
	p.audit(ctx, id, imageRef, &out, nil)
	return out, nil
}

// Process validates res, computes the score and stores it when the policy allows.
// Nothing is computed or written when validation fails.
func (p *Pipeline) Process(ctx context.Context, id Identity, res ocr.Result) (Outcome, error) {
	fields, err := res.Validate()
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		Fields:   fields,
		Speed:    float64(fields.CharCount),
		Accuracy: fields.AccuracyRate / 100,
	}
	out.Score = score.Calculate(out.Speed, out.Accuracy, float64(fields.MistypeCount), float64(fields.ContinuousMistypeCount))
	out.Qualified = fields.Level == p.Policy.QualifyingLevel
	out.Privileged = p.Policy.privileged(id)

	if !out.Qualified || out.Privileged {
		log.Printf("submission not stored user=%s level=%d score=%d qualified=%v privileged=%v",
			id.UserID, fields.Level, out.Score, out.Qualified, out.Privileged)
		return out, nil
	}

	sub := &models.Submission{
		UserID:         id.UserID,
		Score:          out.Score,
		Speed:          out.Speed,
		Accuracy:       out.Accuracy,
		Miss:           float64(fields.MistypeCount),
		ContinuousMiss: float64(fields.ContinuousMistypeCount),
		ChannelID:      id.ChannelID,
	}
	if err := p.Repo.Insert(ctx, sub); err != nil {
		return Outcome{}, fmt.Errorf("store submission: %w", err)
	}
	out.Stored = true
	out.Submission = sub
	log.Printf("submission stored id=%d user=%s score=%d", sub.ID, id.UserID, sub.Score)
	return out, nil
}

func (p *Pipeline) audit(ctx context.Context, id Identity, imageRef string, out *Outcome, cause error) {
	if p.Audit == nil {
		return
	}
	shot := &models.Screenshot{
		UserID:    id.UserID,
		ChannelID: id.ChannelID,
		ImageRef:  imageRef,
		Backend:   p.Backend,
	}
	if cause != nil {
		shot.Failed = true
		shot.FailedReason = truncate(Message(cause), 255)
	}
	if out != nil {
		level, sc := out.Fields.Level, out.Score
		shot.Level = &level
		shot.Score = &sc
		if out.Submission != nil {
			sid := out.Submission.ID
			shot.SubmissionID = &sid
		}
	}
	if err := p.Audit.RecordScreenshot(ctx, shot); err != nil {
		log.Printf("WARN audit record failed user=%s image=%s: %v", id.UserID, imageRef, err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
