package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/deckster-app/deckster-api/importer"
	"github.com/deckster-app/deckster-api/middleware"
	"github.com/deckster-app/deckster-api/models"
)

// BulkAddFlashcards creates many flashcards under one deck in a single
// transaction. Rows come either from an uploaded CSV/XLSX file (multipart
// field "file") or from a JSON body; invalid rows are dropped and reported,
// they do not fail the import.
func (db *DBHandler) BulkAddFlashcards(w http.ResponseWriter, r *http.Request) {
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

	var rows []importer.Row
	var result *importer.Result

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Upload must include a file field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		rows, result, err = importer.Parse(header.Filename, file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		var reqData struct {
			Cards []importer.Row `json:"cards"`
		}
		if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		result = &importer.Result{}
		for i, card := range reqData.Cards {
			result.TotalProcessed++
			if strings.TrimSpace(card.Question) == "" || strings.TrimSpace(card.Answer) == "" {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: missing question or answer", i+1))
				continue
			}
			rows = append(rows, card)
			result.Imported++
		}
	}

	flashcards := make([]models.Flashcard, 0, len(rows))

	tx := db.Begin()
	if tx.Error != nil {
		http.Error(w, "Could not begin transaction", http.StatusInternalServerError)
		return
	}

	for _, row := range rows {
		publicID, err := gonanoid.New()
		if err != nil {
			tx.Rollback()
			http.Error(w, "Failed to generate ID", http.StatusInternalServerError)
			return
		}

		flashcard := models.Flashcard{
			PublicID: publicID,
			Question: row.Question,
			Answer:   row.Answer,
			DeckID:   deck.ID,
		}

		if err := tx.Create(&flashcard).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Failed to create flashcards", http.StatusInternalServerError)
			return
		}

		flashcards = append(flashcards, flashcard)
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Could not commit transaction", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"flashcards": flashcards,
		"result":     result,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}
