package middleware

import (
	"github.com/go-chi/cors"
)

// NewCORS builds the CORS policy for the API. The methods match what the
// routes actually serve, and the API carries no authentication, so no
// credential or Authorization handling is allowed through.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
}
