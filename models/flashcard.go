package models

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrCardTextRequired = errors.New("flashcard question and answer are required")

// Flashcard represents an individual flashcard
type Flashcard struct {
	gorm.Model
	PublicID string `gorm:"size:100;uniqueIndex"`
	Question string `gorm:"not null;size:1000"`
	Answer   string `gorm:"not null;size:1000"`
	ImageURL string `gorm:"size:500"`

	DeckID uint     `gorm:"not null;index"`
	Deck   CardDeck `gorm:"foreignKey:DeckID" json:"-"`
}

// BeforeSave rejects cards whose question or answer is empty after trimming.
func (f *Flashcard) BeforeSave(tx *gorm.DB) error {
	f.Question = strings.TrimSpace(f.Question)
	f.Answer = strings.TrimSpace(f.Answer)
	if f.Question == "" || f.Answer == "" {
		return ErrCardTextRequired
	}
	return nil
}
