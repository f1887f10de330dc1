package httpserver

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/cors"
)

// CORSOptions configures cross-origin access to the demo HTTP front
// door. The env-var contract (CORS_ALLOWED_ORIGINS, _METHODS, _HEADERS,
// _EXPOSED_HEADERS, _ALLOW_CREDENTIALS, _MAX_AGE) and its
// wildcard/comma-separated-list/development-default behavior are
// grounded on this codebase's own CORS test suite
// (test/unit/http/cors/cors_test.go), which exercises a
// `pkg/http/cors` package not itself present in this tree; CORSFromEnv
// reconstructs that contract on top of the real go-chi/cors library
// rather than a hand-rolled middleware.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// CORSFromEnv reads CORSOptions from the environment, falling back to
// permissive development defaults (wildcard origin, the common REST
// verbs) when nothing is configured — matching the
// "no environment variables set = development defaults" behavior this
// codebase's CORS tests expect.
func CORSFromEnv() CORSOptions {
	opts := CORSOptions{
		AllowedOrigins: splitOrDefault(os.Getenv("CORS_ALLOWED_ORIGINS"), []string{"*"}),
		AllowedMethods: splitOrDefault(os.Getenv("CORS_ALLOWED_METHODS"), []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: splitOrDefault(os.Getenv("CORS_ALLOWED_HEADERS"), []string{"Accept", "Content-Type", "Authorization"}),
		ExposedHeaders: splitOrDefault(os.Getenv("CORS_EXPOSED_HEADERS"), nil),
		MaxAge:         300,
	}
	if v := os.Getenv("CORS_ALLOW_CREDENTIALS"); v != "" {
		opts.AllowCredentials, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("CORS_MAX_AGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.MaxAge = n
		}
	}
	return opts
}

func splitOrDefault(raw string, def []string) []string {
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CORSHandler builds the go-chi/cors middleware for opts.
func CORSHandler(opts CORSOptions) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   opts.AllowedHeaders,
		ExposedHeaders:   opts.ExposedHeaders,
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.MaxAge,
	})
}

