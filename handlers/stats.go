package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/deckster-app/deckster-api/middleware"
	"github.com/deckster-app/deckster-api/models"
	"github.com/deckster-app/deckster-api/stats"
)

// GetDeckStats returns the caller's lifetime accuracy and proficiency band
// for one deck.
func (db *DBHandler) GetDeckStats(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	deckID := r.PathValue("deckID")

	var deck models.CardDeck
	if err := db.Where("public_id = ?", deckID).First(&deck).Error; err != nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats.ForDeck(db.DB, profile.ID, deck.ID))
}

// GetFlashcardStats is the same aggregate scoped to a single card.
func (db *DBHandler) GetFlashcardStats(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	flashcardID := r.PathValue("flashcardID")

	var flashcard models.Flashcard
	if err := db.Where("public_id = ?", flashcardID).First(&flashcard).Error; err != nil {
		http.Error(w, "Flashcard not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats.ForFlashcard(db.DB, profile.ID, flashcard.ID))
}

// GetSessionStats returns the running totals stored on one session.
func (db *DBHandler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	var session models.StudySession
	if err := db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		http.Error(w, "Study session not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"sessionId":       session.SessionID,
		"status":          session.Status,
		"totalAttempts":   session.TotalAttempts,
		"correctAttempts": session.CorrectAttempts,
		"sessionAccuracy": session.Accuracy,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetRecentSessions lists the most recent completed sessions for a deck,
// newest first, for the trend chart.
func (db *DBHandler) GetRecentSessions(w http.ResponseWriter, r *http.Request) {
	deckID := r.PathValue("deckID")

	var deck models.CardDeck
	if err := db.Where("public_id = ?", deckID).First(&deck).Error; err != nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats.RecentSessions(db.DB, deck.ID, limit))
}
