package stats

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/deckster-app/deckster-api/models"
)

// Proficiency bands, highest threshold first.
const (
	BandMastered   = "Mastered"
	BandAdvanced   = "Advanced"
	BandProficient = "Proficient"
	BandDeveloping = "Developing"
	BandBeginner   = "Beginner"
	BandNoData     = "No Data"
)

// AttemptStats is the lifetime aggregate over a user's attempts for one deck
// or one flashcard.
type AttemptStats struct {
	TotalAttempts   int64   `json:"totalAttempts"`
	CorrectAttempts int64   `json:"correctAttempts"`
	AttemptAccuracy float64 `json:"attemptAccuracy"`
	ProficiencyBand string  `json:"proficiencyBand"`
}

// SessionSummary is one entry of a recent-sessions trend chart.
type SessionSummary struct {
	SessionID       string     `json:"sessionId"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	TotalAttempts   int        `json:"totalAttempts"`
	CorrectAttempts int        `json:"correctAttempts"`
	Accuracy        float64    `json:"accuracy"`
}

// Accuracy returns correct/total as a percentage clamped to [0, 100].
// No attempts means 0, not NaN.
func Accuracy(correct, total int64) float64 {
	if total <= 0 {
		return 0
	}
	acc := float64(correct) * 100.0 / float64(total)
	if acc < 0 {
		return 0
	}
	if acc > 100 {
		return 100
	}
	return acc
}

// ProficiencyBand maps an accuracy percentage onto a discrete band. The
// thresholds are evaluated in descending order and the first match wins;
// a user with no attempts at all has no band.
func ProficiencyBand(accuracy float64, total int64) string {
	if total <= 0 {
		return BandNoData
	}
	switch {
	case accuracy >= 95:
		return BandMastered
	case accuracy >= 85:
		return BandAdvanced
	case accuracy >= 75:
		return BandProficient
	case accuracy >= 65:
		return BandDeveloping
	default:
		return BandBeginner
	}
}

// ForDeck aggregates a user's lifetime attempts across one deck.
func ForDeck(db *gorm.DB, userID, deckID uint) AttemptStats {
	return attemptStats(db.Model(&models.StudyAttempt{}).
		Where("user_id = ? AND deck_id = ?", userID, deckID))
}

// ForFlashcard is the same computation scoped to a single card.
func ForFlashcard(db *gorm.DB, userID, flashcardID uint) AttemptStats {
	return attemptStats(db.Model(&models.StudyAttempt{}).
		Where("user_id = ? AND flashcard_id = ?", userID, flashcardID))
}

// attemptStats runs the two count queries behind every lifetime aggregate.
// Aggregation is read-only; on a query error it degrades to a zero-valued
// stats object rather than failing the whole response.
func attemptStats(query *gorm.DB) AttemptStats {
	var total, correct int64

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		log.Printf("stats: counting attempts: %v", err)
		return AttemptStats{ProficiencyBand: BandNoData}
	}
	if err := query.Session(&gorm.Session{}).Where("is_correct = ?", true).Count(&correct).Error; err != nil {
		log.Printf("stats: counting correct attempts: %v", err)
		return AttemptStats{ProficiencyBand: BandNoData}
	}

	accuracy := Accuracy(correct, total)
	return AttemptStats{
		TotalAttempts:   total,
		CorrectAttempts: correct,
		AttemptAccuracy: accuracy,
		ProficiencyBand: ProficiencyBand(accuracy, total),
	}
}

// RecentSessions returns at most limit completed sessions for a deck, newest
// first, each carrying its own accuracy.
func RecentSessions(db *gorm.DB, deckID uint, limit int) []SessionSummary {
	if limit <= 0 {
		limit = 5
	}

	var sessions []models.StudySession
	err := db.Where("deck_id = ? AND status = ?", deckID, models.SessionCompleted).
		Order("start_time DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		log.Printf("stats: loading recent sessions: %v", err)
		return []SessionSummary{}
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			SessionID:       s.SessionID,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			TotalAttempts:   s.TotalAttempts,
			CorrectAttempts: s.CorrectAttempts,
			Accuracy:        s.Accuracy,
		})
	}
	return summaries
}
