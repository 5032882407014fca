package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/deckster-app/deckster-api/config"
	"github.com/deckster-app/deckster-api/handlers"
	"github.com/deckster-app/deckster-api/middleware"
)

func init() {
	// Load .env file if not in production environment
	if os.Getenv("RAILWAY_ENVIRONMENT_NAME") == "" {
		err := godotenv.Load()
		if err != nil {
			log.Printf("Warning: .env file not found, environment variables might not be loaded: %v", err)
		}
	}
}

func main() {
	config.Load()
	config.Connect()
	authMiddleware := middleware.EnsureValidToken()

	DBHandler := &handlers.DBHandler{DB: config.Database}
	mux := http.NewServeMux()

	// Profiles
	mux.HandleFunc("GET /api/profiles", DBHandler.GetProfiles)
	mux.HandleFunc("POST /api/profiles", DBHandler.AddProfile)
	mux.HandleFunc("GET /api/profiles/{username}", DBHandler.GetProfile)
	mux.HandleFunc("GET /api/profiles/{username}/decks", DBHandler.GetDecksForProfile)
	mux.HandleFunc("POST /api/login", DBHandler.Login)
	mux.HandleFunc("POST /api/reset-password", DBHandler.ResetPassword)
	mux.HandleFunc("GET /api/me", middleware.RequireProfile(DBHandler.Me))
	mux.HandleFunc("PUT /api/me", middleware.RequireProfile(DBHandler.UpdateMe))
	mux.HandleFunc("GET /api/me/decks", middleware.RequireProfile(DBHandler.GetMyDecks))

	// Decks
	mux.HandleFunc("GET /api/decks", DBHandler.GetCardDecks)
	mux.HandleFunc("POST /api/decks", middleware.RequireProfile(DBHandler.CreateCardDeck))
	mux.HandleFunc("GET /api/decks/{deckID}", DBHandler.GetCardDeckByID)
	mux.HandleFunc("PUT /api/decks/{deckID}", middleware.RequireProfile(DBHandler.UpdateCardDeckByID))
	mux.HandleFunc("DELETE /api/decks/{deckID}", middleware.RequireProfile(DBHandler.DeleteCardDeckByID))
	mux.HandleFunc("GET /api/decks/{deckID}/stats", middleware.RequireProfile(DBHandler.GetDeckStats))
	mux.HandleFunc("GET /api/decks/{deckID}/sessions/recent", DBHandler.GetRecentSessions)

	// Flashcards
	mux.HandleFunc("GET /api/flashcards", DBHandler.GetFlashcards)
	mux.HandleFunc("GET /api/flashcards/{flashcardID}", DBHandler.GetFlashcardByID)
	mux.HandleFunc("GET /api/flashcards/{flashcardID}/stats", middleware.RequireProfile(DBHandler.GetFlashcardStats))
	mux.HandleFunc("POST /api/flashcards/{flashcardID}/review", middleware.RequireProfile(DBHandler.ReviewFlashcard))
	mux.HandleFunc("GET /api/decks/{deckID}/flashcards", DBHandler.GetFlashcardsForDeck)
	mux.HandleFunc("POST /api/decks/{deckID}/flashcards", middleware.RequireProfile(DBHandler.CreateFlashcard))
	mux.HandleFunc("POST /api/decks/{deckID}/flashcards/bulk", middleware.RequireProfile(DBHandler.BulkAddFlashcards))
	mux.HandleFunc("PUT /api/decks/{deckID}/flashcards/{flashcardID}", middleware.RequireProfile(DBHandler.UpdateFlashcardByID))
	mux.HandleFunc("DELETE /api/decks/{deckID}/flashcards/{flashcardID}", middleware.RequireProfile(DBHandler.DeleteFlashcardByID))

	// Study sessions
	mux.HandleFunc("POST /api/sessions", middleware.RequireProfile(DBHandler.StartSession))
	mux.HandleFunc("PUT /api/sessions/{sessionID}/end", middleware.RequireProfile(DBHandler.EndSession))
	mux.HandleFunc("GET /api/sessions/{sessionID}/stats", DBHandler.GetSessionStats)

	// Configure CORS with specific options
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   config.Env.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(authMiddleware(mux))

	serverAddr := "0.0.0.0:" + config.Env.Port
	log.Printf("Listening on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		log.Fatal(err)
	}
}
