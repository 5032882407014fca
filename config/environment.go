package config

import (
	"log"
	"os"
	"strings"
)

type Environment struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string
}

var Env Environment

// Load reads process configuration once at startup. A missing JWT signing
// secret is fatal; everything else has a development fallback.
func Load() {
	if os.Getenv("JWT_SECRET_KEY") == "" {
		log.Fatal("environment.go: JWT_SECRET_KEY not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // fallback port for local development
	}

	origins := []string{"http://localhost:3000"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	Env = Environment{
		Port:           port,
		DatabaseURL:    os.Getenv("DB_URL"),
		AllowedOrigins: origins,
	}
}
