package middleware

import (
	"context"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"github.com/deckster-app/deckster-api/config"
	"github.com/deckster-app/deckster-api/models"
)

type contextKey string

const profileKey contextKey = "profile"

// RequireProfile resolves the authenticated caller's Profile row and attaches
// it to the request context. Anonymous or unknown callers are rejected before
// the handler runs.
func RequireProfile(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
		if !ok || claims.RegisteredClaims.Subject == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"UNAUTHENTICATED"}`))
			return
		}

		var profile models.Profile
		if err := config.Database.Where("public_id = ?", claims.RegisteredClaims.Subject).First(&profile).Error; err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"UNAUTHENTICATED"}`))
			return
		}

		ctx := context.WithValue(r.Context(), profileKey, &profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ProfileFromRequest returns the Profile attached by RequireProfile.
func ProfileFromRequest(r *http.Request) (*models.Profile, bool) {
	profile, ok := r.Context().Value(profileKey).(*models.Profile)
	return profile, ok
}
