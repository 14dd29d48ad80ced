package middleware

import (
	"net/http"

	"github.com/tokeneth/eth-gateway/internal/config"
)

// CORS adds Cross-Origin Resource Sharing headers per the configured
// allowed origins.
func CORS(cfg config.CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(cfg.AllowedOrigins) > 0 {
				origin := cfg.AllowedOrigins[0]
				if origin == "*" || contains(cfg.AllowedOrigins, r.Header.Get("Origin")) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
