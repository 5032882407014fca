package middleware

import (
	"context"
	"log"
	"net/http"
	"os"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"github.com/deckster-app/deckster-api/auth"
)

// CustomClaims carries the identity claims embedded by auth.CreateToken.
type CustomClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (c *CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken validates the bearer token on every request. Credentials
// are optional: a request without a token passes through anonymously, while
// an invalid or expired token is rejected before any handler runs. The token
// is read from the Authorization header, with a ?token= query fallback.
func EnsureValidToken() func(next http.Handler) http.Handler {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET_KEY")), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		auth.TokenIssuer,
		[]string{auth.TokenAudience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
	)
	if err != nil {
		log.Fatalf("failed to set up the jwt validator: %v", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("token validation error: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"UNAUTHENTICATED"}`))
	}

	m := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithCredentialsOptional(true),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.ParameterTokenExtractor("token"),
		)),
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(next http.Handler) http.Handler {
		return m.CheckJWT(next)
	}
}
