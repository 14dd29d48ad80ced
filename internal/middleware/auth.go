// Auth extracts an optional bearer-token identity, grounded on the
// JWT middleware exercise: HS256 tokens parsed and validated with
// github.com/golang-jwt/jwt/v5, the signing method pinned to HMAC to
// rule out an algorithm-confusion attack.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the gateway's bearer-token payload. The subject is the
// sender token identity the submission pipeline and notify package
// record as senderTokenId.
type Claims struct {
	jwt.RegisteredClaims
}

const claimsKey contextKey = "claims"

// ParseBearerToken validates tokenString against secret and returns
// its claims.
func ParseBearerToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Auth is an optional-identity middleware: a present, valid bearer
// token is attached to the request context as Claims; an absent
// Authorization header is not an error (spec §4.6 step 1, "optional"),
// but a present, malformed one is rejected with 401.
func Auth(secret []byte) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "invalid authorization format, expected 'Bearer {token}'", http.StatusUnauthorized)
				return
			}

			claims, err := ParseBearerToken(tokenString, secret)
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SenderTokenID extracts the bearer token's subject from ctx, or nil
// if the request carried no identity.
func SenderTokenID(ctx context.Context) *string {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return nil
	}
	id := claims.Subject
	return &id
}
