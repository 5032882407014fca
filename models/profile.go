package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/deckster-app/deckster-api/auth"
)

// Profile represents a registered user
type Profile struct {
	gorm.Model
	PublicID         string     `gorm:"size:100;uniqueIndex"`
	Username         string     `gorm:"unique;not null;size:100"`
	Email            string     `gorm:"unique;not null;size:255"`
	Password         string     `gorm:"not null" json:"-"`
	SecurityQuestion string     `gorm:"size:255"`
	SecurityAnswer   string     `gorm:"not null" json:"-"`
	AvatarURL        string     `gorm:"size:500"`
	LastLogin        *time.Time `gorm:"default:null"`

	CardDecks []CardDeck `gorm:"foreignKey:UserID"`
}

// BeforeSave hashes the password and security answer whenever they hold a
// plaintext value. Runs on create and update alike, so a changed password is
// re-hashed and an already-hashed one is left untouched.
func (p *Profile) BeforeSave(tx *gorm.DB) error {
	if p.Password != "" && !auth.IsHashed(p.Password) {
		hashed, err := auth.HashSecret(p.Password)
		if err != nil {
			return err
		}
		p.Password = hashed
	}

	if p.SecurityAnswer != "" && !auth.IsHashed(p.SecurityAnswer) {
		hashed, err := auth.HashSecret(p.SecurityAnswer)
		if err != nil {
			return err
		}
		p.SecurityAnswer = hashed
	}

	return nil
}
