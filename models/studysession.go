package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// StudySession status values. A session only ever leaves "active", it never
// transitions back into it.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

// StudySession tracks one bounded run through a deck. The session identifier
// is chosen by the client when the session starts; running attempt counters
// are bumped as each review is recorded.
type StudySession struct {
	gorm.Model
	SessionID string `gorm:"size:100;uniqueIndex;not null"`

	UserID uint     `gorm:"not null;index"`
	User   Profile  `gorm:"foreignKey:UserID" json:"-"`
	DeckID uint     `gorm:"not null;index"`
	Deck   CardDeck `gorm:"foreignKey:DeckID" json:"-"`

	StartTime time.Time  `gorm:"not null"`
	EndTime   *time.Time `gorm:"default:null"`

	// ClientDuration is the seconds the client reports when closing the
	// session; CalculatedDuration is derived from EndTime - StartTime.
	ClientDuration     int
	CalculatedDuration int

	TotalAttempts   int    `gorm:"not null;default:0"`
	CorrectAttempts int    `gorm:"not null;default:0"`
	Status          string `gorm:"size:16;not null;default:active"`

	// Accuracy is computed on read from the running counters.
	Accuracy float64 `gorm:"-"`
}

func (s *StudySession) AfterFind(tx *gorm.DB) error {
	s.Accuracy = sessionAccuracy(s.CorrectAttempts, s.TotalAttempts)
	return nil
}

func sessionAccuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	acc := math.Round(float64(correct) / float64(total) * 100)
	if acc < 0 {
		return 0
	}
	if acc > 100 {
		return 100
	}
	return acc
}
