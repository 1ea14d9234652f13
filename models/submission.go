package models

import "time"

// Submission is one qualifying typing result. Speed is the number of characters
// typed and Accuracy is in [0,1]. Score is only rewritten by a recompute pass.
type Submission struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:255;not null;index" json:"user_id"`
	Score          int64     `gorm:"not null;index" json:"score"`
	Speed          float64   `gorm:"not null" json:"speed"`
	Accuracy       float64   `gorm:"not null" json:"accuracy"`
	Miss           float64   `gorm:"not null" json:"miss"`
	ContinuousMiss float64   `gorm:"not null;default:0" json:"continuous_miss"`
	ChannelID      string    `gorm:"size:255;not null" json:"channel_id"`
	CreatedAt      time.Time `json:"created_at"`
}
