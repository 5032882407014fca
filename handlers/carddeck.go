package handlers

import (
	"encoding/json"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/deckster-app/deckster-api/middleware"
	"github.com/deckster-app/deckster-api/models"
	"github.com/deckster-app/deckster-api/utils"
)

// GetCardDecks lists decks. With ?public=true only public decks are returned;
// the unfiltered form is a broad internal read and requires an authenticated
// caller. Neither form is the access path for other users' private decks.
func (db *DBHandler) GetCardDecks(w http.ResponseWriter, r *http.Request) {
	query := db.DB
	if r.URL.Query().Get("public") == "true" {
		query = query.Where("is_public = ?", true)
	} else if _, ok := utils.GetSubject(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var decks []models.CardDeck
	if err := query.Find(&decks).Error; err != nil {
		http.Error(w, "Failed to fetch decks", http.StatusInternalServerError)
		return
	}

	if len(decks) == 0 {
		decks = []models.CardDeck{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(decks)
}

func (db *DBHandler) GetDecksForProfile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}

	var profile models.Profile
	if err := db.Where("username = ?", username).First(&profile).Error; err != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}

	query := db.Where("user_id = ?", profile.ID)

	// Other users only see this profile's public decks.
	subject, ok := utils.GetSubject(r)
	if !ok || subject != profile.PublicID {
		query = query.Where("is_public = ?", true)
	}

	var decks []models.CardDeck
	if err := query.Find(&decks).Error; err != nil {
		http.Error(w, "Failed to fetch decks", http.StatusInternalServerError)
		return
	}

	if len(decks) == 0 {
		decks = []models.CardDeck{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(decks)
}

func (db *DBHandler) GetMyDecks(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var decks []models.CardDeck
	if err := db.Where("user_id = ?", profile.ID).Find(&decks).Error; err != nil {
		http.Error(w, "Failed to fetch decks", http.StatusInternalServerError)
		return
	}

	if len(decks) == 0 {
		decks = []models.CardDeck{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(decks)
}

func (db *DBHandler) GetCardDeckByID(w http.ResponseWriter, r *http.Request) {
	deckID := r.PathValue("deckID")
	if deckID == "" {
		http.Error(w, "Deck ID is required", http.StatusBadRequest)
		return
	}

	var deck models.CardDeck
	result := db.Preload("User").Preload("Flashcards").Where("public_id = ?", deckID).First(&deck)
	if result.Error != nil {
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
	json.NewEncoder(w).Encode(deck)
}

func (db *DBHandler) CreateCardDeck(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var reqData struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		ImageURL string `json:"imageUrl"`
		IsPublic bool   `json:"isPublic"`
	}

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&reqData); err != nil {
		http.Error(w, "Could not decode request", http.StatusBadRequest)
		return
	}

	if reqData.Name == "" {
		http.Error(w, "Deck name is required", http.StatusBadRequest)
		return
	}

	publicID, err := gonanoid.New()
	if err != nil {
		http.Error(w, "Failed to generate ID", http.StatusInternalServerError)
		return
	}

	deck := models.CardDeck{
		PublicID: publicID,
		Name:     reqData.Name,
		Category: reqData.Category,
		ImageURL: reqData.ImageURL,
		IsPublic: reqData.IsPublic,
		UserID:   profile.ID,
	}

	if err := db.Create(&deck).Error; err != nil {
		http.Error(w, "Failed to create deck", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(deck)
}

func (db *DBHandler) UpdateCardDeckByID(w http.ResponseWriter, r *http.Request) {
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
		Name     *string `json:"name,omitempty"`
		Category *string `json:"category,omitempty"`
		ImageURL *string `json:"imageUrl,omitempty"`
		IsPublic *bool   `json:"isPublic,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The owner reference is immutable; only content and visibility change.
	if reqData.Name != nil {
		deck.Name = *reqData.Name
	}
	if reqData.Category != nil {
		deck.Category = *reqData.Category
	}
	if reqData.ImageURL != nil {
		deck.ImageURL = *reqData.ImageURL
	}
	if reqData.IsPublic != nil {
		deck.IsPublic = *reqData.IsPublic
	}

	if err := db.Save(&deck).Error; err != nil {
		http.Error(w, "Failed to update deck", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(deck)
}

func (db *DBHandler) DeleteCardDeckByID(w http.ResponseWriter, r *http.Request) {
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

	if err := db.Where("deck_id = ?", deck.ID).Delete(&models.Flashcard{}).Error; err != nil {
		http.Error(w, "Failed to delete flashcards", http.StatusInternalServerError)
		return
	}

	if err := db.Delete(&deck).Error; err != nil {
		http.Error(w, "Failed to delete deck", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
