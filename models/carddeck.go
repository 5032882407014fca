package models

import "gorm.io/gorm"

// CardDeck represents a named collection of flashcards
type CardDeck struct {
	gorm.Model
	PublicID string `gorm:"size:100;uniqueIndex"`
	Name     string `gorm:"not null;size:100"`
	Category string `gorm:"size:100"`
	ImageURL string `gorm:"size:500"`
	IsPublic bool   `gorm:"default:false"`

	UserID uint    `gorm:"not null"`
	User   Profile `gorm:"foreignKey:UserID" json:"-"`

	Flashcards []Flashcard `gorm:"foreignKey:DeckID"`

	// CardCount is computed on every read rather than stored, so it can
	// never drift when cards are added or removed independently.
	CardCount int64 `gorm:"-"`
}

func (d *CardDeck) AfterFind(tx *gorm.DB) error {
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&Flashcard{}).
		Where("deck_id = ?", d.ID).
		Count(&d.CardCount).Error
}
