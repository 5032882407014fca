package models

import (
	"time"
)

// StudyAttempt is one immutable record of a single flashcard review. Attempts
// are only ever inserted, never updated or deleted.
type StudyAttempt struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"not null;index"`
	FlashcardID uint      `gorm:"not null;index"`
	DeckID      uint      `gorm:"not null;index"`
	SessionID   string    `gorm:"size:100;not null;index"` // References StudySession.SessionID
	IsCorrect   bool      `gorm:"not null"`
	AttemptedAt time.Time `gorm:"autoCreateTime"`
}
