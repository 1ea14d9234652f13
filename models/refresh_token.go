package models

import "time"

// RefreshToken is the sha256 of a refresh token handed to an operator. Tokens
// are single use: a refresh revokes the presented token and issues a new one.
type RefreshToken struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	OperatorID uint      `gorm:"index;not null"`
	Operator   Operator  `gorm:"foreignKey:OperatorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	TokenHash  string    `gorm:"size:128;not null;uniqueIndex"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	Revoked    bool      `gorm:"default:false"`
}
