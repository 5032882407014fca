package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/deckster-app/deckster-api/middleware"
	"github.com/deckster-app/deckster-api/models"
	"github.com/deckster-app/deckster-api/utils"
)

type DBHandler struct {
	*gorm.DB
}

// GetFlashcards is the broad internal read across every deck; it requires an
// authenticated caller.
func (db *DBHandler) GetFlashcards(w http.ResponseWriter, r *http.Request) {
	if _, ok := utils.GetSubject(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var flashcards []models.Flashcard
	if err := db.Find(&flashcards).Error; err != nil {
		http.Error(w, "Failed to fetch flashcards", http.StatusInternalServerError)
		return
	}

	if len(flashcards) == 0 {
		flashcards = []models.Flashcard{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(flashcards)
}

func (db *DBHandler) GetFlashcardsForDeck(w http.ResponseWriter, r *http.Request) {
	deckID := r.PathValue("deckID")

	var deck models.CardDeck
	if err := db.Preload("User").Where("public_id = ?", deckID).First(&deck).Error; err != nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	if !deck.IsPublic {
		// If not public, check authentication and ownership
		subject, ok := utils.GetSubject(r)
		if !ok || deck.User.PublicID != subject {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	var flashcards []models.Flashcard
	if err := db.Where("deck_id = ?", deck.ID).Find(&flashcards).Error; err != nil {
		http.Error(w, "Failed to fetch flashcards", http.StatusInternalServerError)
		return
	}

	if len(flashcards) == 0 {
		flashcards = []models.Flashcard{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(flashcards)
}

func (db *DBHandler) GetFlashcardByID(w http.ResponseWriter, r *http.Request) {
	flashcardID := r.PathValue("flashcardID")
	if flashcardID == "" {
		http.Error(w, "Flashcard ID is required", http.StatusBadRequest)
		return
	}

	var flashcard models.Flashcard
	if err := db.Where("public_id = ?", flashcardID).First(&flashcard).Error; err != nil {
		http.Error(w, "Flashcard not found", http.StatusNotFound)
		return
	}

	var deck models.CardDeck
	if err := db.Preload("User").First(&deck, flashcard.DeckID).Error; err != nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	if !deck.IsPublic {
		subject, ok := utils.GetSubject(r)
		if !ok || deck.User.PublicID != subject {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(flashcard); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (db *DBHandler) CreateFlashcard(w http.ResponseWriter, r *http.Request) {
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

	if deck.UserID != profile.ID {
		http.Error(w, "Forbidden: You do not own this deck", http.StatusForbidden)
		return
	}

	var reqData struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		ImageURL string `json:"imageUrl"`
	}

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&reqData); err != nil {
		http.Error(w, "Could not decode request", http.StatusBadRequest)
		return
	}

	publicID, err := gonanoid.New()
	if err != nil {
		http.Error(w, "Failed to generate ID", http.StatusInternalServerError)
		return
	}

	flashcard := models.Flashcard{
		PublicID: publicID,
		Question: reqData.Question,
		Answer:   reqData.Answer,
		ImageURL: reqData.ImageURL,
		DeckID:   deck.ID,
	}

	if err := db.Create(&flashcard).Error; err != nil {
		if errors.Is(err, models.ErrCardTextRequired) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create flashcard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(flashcard)
}

func (db *DBHandler) UpdateFlashcardByID(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	deckID := r.PathValue("deckID")
	flashcardID := r.PathValue("flashcardID")

	var deck models.CardDeck
	if err := db.Where("public_id = ?", deckID).First(&deck).Error; err != nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	if deck.UserID != profile.ID {
		http.Error(w, "Forbidden: You do not own this deck", http.StatusForbidden)
		return
	}

	var flashcard models.Flashcard
	if err := db.Where("public_id = ? AND deck_id = ?", flashcardID, deck.ID).First(&flashcard).Error; err != nil {
		http.Error(w, "Flashcard not found", http.StatusNotFound)
		return
	}

	var reqData struct {
		Question *string `json:"question,omitempty"`
		Answer   *string `json:"answer,omitempty"`
		ImageURL *string `json:"imageUrl,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if reqData.Question != nil {
		flashcard.Question = *reqData.Question
	}
	if reqData.Answer != nil {
		flashcard.Answer = *reqData.Answer
	}
	if reqData.ImageURL != nil {
		flashcard.ImageURL = *reqData.ImageURL
	}

	if err := db.Save(&flashcard).Error; err != nil {
		if errors.Is(err, models.ErrCardTextRequired) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to update flashcard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(flashcard)
}

func (db *DBHandler) DeleteFlashcardByID(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	deckID := r.PathValue("deckID")
	flashcardID := r.PathValue("flashcardID")

	var deck models.CardDeck
	if err := db.Where("public_id = ?", deckID).First(&deck).Error; err != nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	if deck.UserID != profile.ID {
		http.Error(w, "Forbidden: You do not own this deck", http.StatusForbidden)
		return
	}

	result := db.Where("public_id = ? AND deck_id = ?", flashcardID, deck.ID).Delete(&models.Flashcard{})
	if result.Error != nil {
		http.Error(w, "Failed to delete flashcard", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Flashcard not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReviewFlashcard records one immutable study attempt for the authenticated
// caller and bumps the session's running counters. The flashcard itself is
// returned unchanged: attempt history, not flashcard state, is the record of
// truth.
func (db *DBHandler) ReviewFlashcard(w http.ResponseWriter, r *http.Request) {
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

	var deck models.CardDeck
	if err := db.First(&deck, flashcard.DeckID).Error; err != nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	var reqData struct {
		IsCorrect bool   `json:"isCorrect"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if reqData.SessionID == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	var session models.StudySession
	if err := db.Where("session_id = ?", reqData.SessionID).First(&session).Error; err != nil {
		http.Error(w, "Study session not found", http.StatusNotFound)
		return
	}
	if session.UserID != profile.ID {
		http.Error(w, "Forbidden: You do not own this session", http.StatusForbidden)
		return
	}
	if session.Status != models.SessionActive {
		http.Error(w, "Study session is no longer active", http.StatusConflict)
		return
	}

	attempt := models.StudyAttempt{
		UserID:      profile.ID,
		FlashcardID: flashcard.ID,
		DeckID:      deck.ID,
		SessionID:   session.SessionID,
		IsCorrect:   reqData.IsCorrect,
	}

	tx := db.Begin()
	if tx.Error != nil {
		http.Error(w, "Could not begin transaction", http.StatusInternalServerError)
		return
	}

	if err := tx.Create(&attempt).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to record attempt", http.StatusInternalServerError)
		log.Println("Attempt creation error:", err)
		return
	}

	correctIncr := 0
	if reqData.IsCorrect {
		correctIncr = 1
	}
	err := tx.Model(&models.StudySession{}).
		Where("id = ?", session.ID).
		UpdateColumns(map[string]interface{}{
			"total_attempts":   gorm.Expr("total_attempts + 1"),
			"correct_attempts": gorm.Expr("correct_attempts + ?", correctIncr),
		}).Error
	if err != nil {
		tx.Rollback()
		http.Error(w, "Failed to update session", http.StatusInternalServerError)
		log.Println("Session counter update error:", err)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Could not commit transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(flashcard)
}
