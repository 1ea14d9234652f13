package models

import (
	"time"
)

// Screenshot records every analysed result screen, including the ones that
// failed or did not qualify, so admins can review what the extractor read.
type Screenshot struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    string `gorm:"size:255;not null;index"`
	ChannelID string `gorm:"size:255"`
	ImageRef  string `gorm:"column:image_ref;size:1024;not null"`
	Backend   string `gorm:"size:32"`
	Level     *int
	Score     *int64
	// SubmissionID links to the stored row when the result qualified.
	SubmissionID *uint       `gorm:"index"`
	Submission   *Submission `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Failed       bool        `gorm:"default:false;index"`
	FailedReason string      `gorm:"size:255"`
}
