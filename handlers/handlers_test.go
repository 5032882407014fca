package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/deckster-app/deckster-api/auth"
	"github.com/deckster-app/deckster-api/config"
	"github.com/deckster-app/deckster-api/middleware"
	"github.com/deckster-app/deckster-api/models"
)

// setupServer builds the same handler stack main assembles: mux routes
// wrapped in token validation, backed by a throwaway database.
func setupServer(t *testing.T) (*gorm.DB, http.Handler) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "handler-test-secret")

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Profile{},
		&models.CardDeck{},
		&models.Flashcard{},
		&models.StudySession{},
		&models.StudyAttempt{},
	)
	if err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	config.Database = db

	h := &DBHandler{DB: db}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/decks", h.GetCardDecks)
	mux.HandleFunc("POST /api/decks", middleware.RequireProfile(h.CreateCardDeck))
	mux.HandleFunc("GET /api/decks/{deckID}", h.GetCardDeckByID)
	mux.HandleFunc("GET /api/decks/{deckID}/stats", middleware.RequireProfile(h.GetDeckStats))
	mux.HandleFunc("GET /api/decks/{deckID}/sessions/recent", h.GetRecentSessions)
	mux.HandleFunc("POST /api/decks/{deckID}/flashcards/bulk", middleware.RequireProfile(h.BulkAddFlashcards))
	mux.HandleFunc("POST /api/flashcards/{flashcardID}/review", middleware.RequireProfile(h.ReviewFlashcard))
	mux.HandleFunc("GET /api/flashcards/{flashcardID}/stats", middleware.RequireProfile(h.GetFlashcardStats))
	mux.HandleFunc("POST /api/sessions", middleware.RequireProfile(h.StartSession))
	mux.HandleFunc("PUT /api/sessions/{sessionID}/end", middleware.RequireProfile(h.EndSession))
	mux.HandleFunc("GET /api/sessions/{sessionID}/stats", h.GetSessionStats)

	return db, middleware.EnsureValidToken()(mux)
}

func createProfile(t *testing.T, db *gorm.DB, username string) (models.Profile, string) {
	t.Helper()

	profile := models.Profile{
		PublicID:         "pid-" + username,
		Username:         username,
		Email:            username + "@example.com",
		Password:         "secret123",
		SecurityQuestion: "favorite color?",
		SecurityAnswer:   "blue",
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("creating profile: %v", err)
	}

	token, err := auth.CreateToken(profile.Username, profile.Email, profile.PublicID)
	if err != nil {
		t.Fatalf("creating token: %v", err)
	}
	return profile, token
}

func createDeck(t *testing.T, db *gorm.DB, owner models.Profile, publicID string, isPublic bool) models.CardDeck {
	t.Helper()

	deck := models.CardDeck{PublicID: publicID, Name: "Deck " + publicID, UserID: owner.ID, IsPublic: isPublic}
	if err := db.Create(&deck).Error; err != nil {
		t.Fatalf("creating deck: %v", err)
	}
	return deck
}

func doJSON(t *testing.T, handler http.Handler, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestReviewFlashcardUnauthenticated(t *testing.T) {
	db, handler := setupServer(t)

	profile, _ := createProfile(t, db, "alice")
	deck := createDeck(t, db, profile, "deck-1", true)
	card := models.Flashcard{PublicID: "card-1", Question: "q", Answer: "a", DeckID: deck.ID}
	if err := db.Create(&card).Error; err != nil {
		t.Fatalf("creating card: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/flashcards/card-1/review", "", map[string]interface{}{
		"isCorrect": true,
		"sessionId": "s1",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "UNAUTHENTICATED") {
		t.Errorf("body = %q, want UNAUTHENTICATED marker", rec.Body.String())
	}

	var attempts int64
	db.Model(&models.StudyAttempt{}).Count(&attempts)
	if attempts != 0 {
		t.Errorf("attempt count = %d, want 0 after rejected review", attempts)
	}
}

func TestStudySessionFlow(t *testing.T) {
	db, handler := setupServer(t)

	profile, token := createProfile(t, db, "alice")
	deck := createDeck(t, db, profile, "deck-1", true)

	cards := make([]models.Flashcard, 10)
	for i := range cards {
		cards[i] = models.Flashcard{
			PublicID: fmt.Sprintf("card-%d", i),
			Question: "q", Answer: "a", DeckID: deck.ID,
		}
		if err := db.Create(&cards[i]).Error; err != nil {
			t.Fatalf("creating card: %v", err)
		}
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", token, map[string]interface{}{
		"sessionId": "sess-1",
		"deckId":    deck.PublicID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session status = %d, body %s", rec.Code, rec.Body.String())
	}

	// 7 correct, then 3 incorrect.
	for i, card := range cards {
		rec := doJSON(t, handler, http.MethodPost, "/api/flashcards/"+card.PublicID+"/review", token, map[string]interface{}{
			"isCorrect": i < 7,
			"sessionId": "sess-1",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("review %d status = %d, body %s", i, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/sess-1/stats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("session stats status = %d", rec.Code)
	}
	var sessionStats struct {
		TotalAttempts   int     `json:"totalAttempts"`
		CorrectAttempts int     `json:"correctAttempts"`
		SessionAccuracy float64 `json:"sessionAccuracy"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sessionStats); err != nil {
		t.Fatalf("decoding session stats: %v", err)
	}
	if sessionStats.TotalAttempts != 10 || sessionStats.CorrectAttempts != 7 || sessionStats.SessionAccuracy != 70 {
		t.Errorf("sessionStats = %+v, want {10 7 70}", sessionStats)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/sessions/sess-1/end", token, map[string]interface{}{
		"clientDuration": 120,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("end session status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ended models.StudySession
	if err := db.Where("session_id = ?", "sess-1").First(&ended).Error; err != nil {
		t.Fatalf("reloading session: %v", err)
	}
	if ended.Status != models.SessionCompleted {
		t.Errorf("status = %q, want completed", ended.Status)
	}
	if ended.EndTime == nil {
		t.Error("EndTime not set on completed session")
	}

	// Ending again must be rejected; the session never becomes active again.
	rec = doJSON(t, handler, http.MethodPut, "/api/sessions/sess-1/end", token, map[string]interface{}{})
	if rec.Code != http.StatusConflict {
		t.Errorf("second end status = %d, want 409", rec.Code)
	}

	// Lifetime deck stats for the caller: 70% accuracy lands in Developing.
	rec = doJSON(t, handler, http.MethodGet, "/api/decks/"+deck.PublicID+"/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deck stats status = %d", rec.Code)
	}
	var deckStats struct {
		TotalAttempts   int64   `json:"totalAttempts"`
		CorrectAttempts int64   `json:"correctAttempts"`
		AttemptAccuracy float64 `json:"attemptAccuracy"`
		ProficiencyBand string  `json:"proficiencyBand"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &deckStats); err != nil {
		t.Fatalf("decoding deck stats: %v", err)
	}
	if deckStats.TotalAttempts != 10 || deckStats.CorrectAttempts != 7 {
		t.Errorf("deckStats counts = %+v, want 10/7", deckStats)
	}
	if deckStats.ProficiencyBand != "Developing" {
		t.Errorf("ProficiencyBand = %q, want Developing", deckStats.ProficiencyBand)
	}

	// Per-card stats: card-0 was answered correctly once.
	rec = doJSON(t, handler, http.MethodGet, "/api/flashcards/card-0/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("card stats status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &deckStats); err != nil {
		t.Fatalf("decoding card stats: %v", err)
	}
	if deckStats.TotalAttempts != 1 || deckStats.ProficiencyBand != "Mastered" {
		t.Errorf("card stats = %+v, want 1 attempt / Mastered", deckStats)
	}
}

func TestEndSessionWithoutAttemptsIsAbandoned(t *testing.T) {
	db, handler := setupServer(t)

	profile, token := createProfile(t, db, "alice")
	deck := createDeck(t, db, profile, "deck-1", true)

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", token, map[string]interface{}{
		"sessionId": "sess-1",
		"deckId":    deck.PublicID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/sessions/sess-1/end", token, map[string]interface{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("end session status = %d", rec.Code)
	}

	var session models.StudySession
	if err := db.Where("session_id = ?", "sess-1").First(&session).Error; err != nil {
		t.Fatalf("reloading session: %v", err)
	}
	if session.Status != models.SessionAbandoned {
		t.Errorf("status = %q, want abandoned", session.Status)
	}
}

func TestRecentSessionsLimitAndOrder(t *testing.T) {
	db, handler := setupServer(t)

	profile, _ := createProfile(t, db, "alice")
	deck := createDeck(t, db, profile, "deck-1", true)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		session := models.StudySession{
			SessionID:       fmt.Sprintf("done-%d", i),
			UserID:          profile.ID,
			DeckID:          deck.ID,
			StartTime:       base.Add(time.Duration(i) * time.Minute),
			TotalAttempts:   4,
			CorrectAttempts: i % 5,
			Status:          models.SessionCompleted,
		}
		if err := db.Create(&session).Error; err != nil {
			t.Fatalf("creating session: %v", err)
		}
	}
	active := models.StudySession{
		SessionID: "still-active",
		UserID:    profile.ID,
		DeckID:    deck.ID,
		StartTime: time.Now(),
		Status:    models.SessionActive,
	}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("creating active session: %v", err)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/decks/"+deck.PublicID+"/sessions/recent?limit=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recent sessions status = %d", rec.Code)
	}

	var summaries []struct {
		SessionID string    `json:"sessionId"`
		StartTime time.Time `json:"startTime"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding summaries: %v", err)
	}
	if len(summaries) != 5 {
		t.Fatalf("len(summaries) = %d, want 5", len(summaries))
	}
	if summaries[0].SessionID != "done-6" {
		t.Errorf("summaries[0] = %q, want done-6 (newest completed first)", summaries[0].SessionID)
	}
	for i := 1; i < len(summaries); i++ {
		if summaries[i].StartTime.After(summaries[i-1].StartTime) {
			t.Errorf("summaries not ordered newest-first at index %d", i)
		}
	}
	for _, s := range summaries {
		if s.SessionID == "still-active" {
			t.Error("active session included in recent completed sessions")
		}
	}
}

func TestBulkAddFlashcardsJSON(t *testing.T) {
	db, handler := setupServer(t)

	profile, token := createProfile(t, db, "alice")
	deck := createDeck(t, db, profile, "deck-1", false)

	rec := doJSON(t, handler, http.MethodPost, "/api/decks/"+deck.PublicID+"/flashcards/bulk", token, map[string]interface{}{
		"cards": []map[string]string{
			{"question": "q1", "answer": "a1"},
			{"question": "q2", "answer": ""},
			{"question": "q3", "answer": "a3"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk add status = %d, body %s", rec.Code, rec.Body.String())
	}

	var response struct {
		Result struct {
			Imported int `json:"imported"`
			Skipped  int `json:"skipped"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response.Result.Imported != 2 || response.Result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 imported / 1 skipped", response.Result)
	}

	var found models.CardDeck
	if err := db.First(&found, deck.ID).Error; err != nil {
		t.Fatalf("reloading deck: %v", err)
	}
	if found.CardCount != 2 {
		t.Errorf("CardCount = %d, want 2", found.CardCount)
	}
}

func TestBulkAddFlashcardsCSVUpload(t *testing.T) {
	db, handler := setupServer(t)

	profile, token := createProfile(t, db, "alice")
	deck := createDeck(t, db, profile, "deck-1", false)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "cards.csv")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write([]byte("Question,Answer\nq1,a1\nq2,a2\n,missing\n"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/decks/"+deck.PublicID+"/flashcards/bulk", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var cards int64
	db.Model(&models.Flashcard{}).Where("deck_id = ?", deck.ID).Count(&cards)
	if cards != 2 {
		t.Errorf("card count = %d, want 2", cards)
	}
}

func TestGetCardDecksVisibility(t *testing.T) {
	db, handler := setupServer(t)

	profile, token := createProfile(t, db, "alice")
	createDeck(t, db, profile, "public-deck", true)
	createDeck(t, db, profile, "private-deck", false)

	// Public filter works anonymously.
	rec := doJSON(t, handler, http.MethodGet, "/api/decks?public=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public listing status = %d", rec.Code)
	}
	var decks []models.CardDeck
	if err := json.Unmarshal(rec.Body.Bytes(), &decks); err != nil {
		t.Fatalf("decoding decks: %v", err)
	}
	if len(decks) != 1 || decks[0].PublicID != "public-deck" {
		t.Errorf("public listing = %+v, want only public-deck", decks)
	}

	// The unfiltered broad read requires an authenticated caller.
	rec = doJSON(t, handler, http.MethodGet, "/api/decks", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous unfiltered listing status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/decks", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated unfiltered listing status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &decks); err != nil {
		t.Fatalf("decoding decks: %v", err)
	}
	if len(decks) != 2 {
		t.Errorf("unfiltered listing returned %d decks, want 2", len(decks))
	}

	// Private deck reads are owner-only.
	rec = doJSON(t, handler, http.MethodGet, "/api/decks/private-deck", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous private deck read status = %d, want 403", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/decks/private-deck", token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("owner private deck read status = %d, want 200", rec.Code)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	db, handler := setupServer(t)

	profile, _ := createProfile(t, db, "alice")
	createDeck(t, db, profile, "deck-1", false)

	rec := doJSON(t, handler, http.MethodGet, "/api/decks", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("malformed token status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "UNAUTHENTICATED") {
		t.Errorf("body = %q, want UNAUTHENTICATED marker", rec.Body.String())
	}
}
