package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/deckster-app/deckster-api/middleware"
	"github.com/deckster-app/deckster-api/models"
)

// StartSession opens a study session for a deck. The client usually supplies
// its own session identifier; a nanoid is generated when it doesn't.
func (db *DBHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var reqData struct {
		SessionID string `json:"sessionId"`
		DeckID    string `json:"deckId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var deck models.CardDeck
	if err := db.Where("public_id = ?", reqData.DeckID).First(&deck).Error; err != nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	sessionID := reqData.SessionID
	if sessionID == "" {
		var err error
		sessionID, err = gonanoid.New()
		if err != nil {
			http.Error(w, "Failed to generate ID", http.StatusInternalServerError)
			return
		}
	}

	var existing models.StudySession
	if err := db.Where("session_id = ?", sessionID).First(&existing).Error; err == nil {
		http.Error(w, "Session ID already in use", http.StatusConflict)
		return
	}

	session := models.StudySession{
		SessionID: sessionID,
		UserID:    profile.ID,
		DeckID:    deck.ID,
		StartTime: time.Now(),
		Status:    models.SessionActive,
	}

	if err := db.Create(&session).Error; err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// EndSession closes an active session. Ending with recorded attempts marks it
// completed; ending early with none, or with the abandoned flag set, marks it
// abandoned. Either way the session never becomes active again.
func (db *DBHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := r.PathValue("sessionID")

	var session models.StudySession
	if err := db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		http.Error(w, "Study session not found", http.StatusNotFound)
		return
	}

	if session.UserID != profile.ID {
		http.Error(w, "Forbidden: You do not own this session", http.StatusForbidden)
		return
	}

	if session.Status != models.SessionActive {
		http.Error(w, "Study session already ended", http.StatusConflict)
		return
	}

	var reqData struct {
		ClientDuration int  `json:"clientDuration"`
		Abandoned      bool `json:"abandoned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	now := time.Now()
	session.EndTime = &now
	session.CalculatedDuration = int(now.Sub(session.StartTime).Seconds())
	session.ClientDuration = reqData.ClientDuration

	if reqData.Abandoned || session.TotalAttempts == 0 {
		session.Status = models.SessionAbandoned
	} else {
		session.Status = models.SessionCompleted
	}

	if err := db.Save(&session).Error; err != nil {
		http.Error(w, "Failed to end session", http.StatusInternalServerError)
		return
	}

	// Reload so the response carries the computed accuracy.
	db.First(&session, session.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(session)
}
