package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	clerkjwt "github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const ClerkIDKey contextKey = "clerkID"
const GuestIDKey contextKey = "guestID"

// GuestIssuer marks tokens we minted ourselves for guest identities, as
// opposed to Clerk-issued ones.
const GuestIssuer = "streakmate-guest"

const guestTokenTTL = 90 * 24 * time.Hour

func guestSecret() ([]byte, error) {
	secret := os.Getenv("GUEST_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("GUEST_JWT_SECRET is not set")
	}
	return []byte(secret), nil
}

// IssueGuestToken mints the bearer token a guest client persists locally in
// place of a provider-backed session.
func IssueGuestToken(userID string) (string, error) {
	secret, err := guestSecret()
	if err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    GuestIssuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(guestTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign guest token: %w", err)
	}
	return signed, nil
}

// VerifyGuestToken returns the guest user id if the token is one of ours.
func VerifyGuestToken(tokenString string) (string, error) {
	secret, err := guestSecret()
	if err != nil {
		return "", err
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(GuestIssuer))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("guest token has no subject")
	}
	return claims.Subject, nil
}

// AuthMiddleware accepts either kind of identity: guest tokens are verified
// locally, everything else is handed to Clerk. Exactly one identity ends up
// in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		if guestID, err := VerifyGuestToken(token); err == nil {
			ctx := context.WithValue(r.Context(), GuestIDKey, guestID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		claims, err := clerkjwt.Verify(r.Context(), &clerkjwt.VerifyParams{
			Token: token,
		})
		if err != nil {
			log.Printf("Token verification failed: %v", err)
			respondWithError(w, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			return
		}

		ctx := context.WithValue(r.Context(), ClerkIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClerkID extracts the Clerk user ID from context.
func GetClerkID(ctx context.Context) (string, bool) {
	clerkID, ok := ctx.Value(ClerkIDKey).(string)
	return clerkID, ok
}

// GetGuestID extracts the guest user ID from context.
func GetGuestID(ctx context.Context) (string, bool) {
	guestID, ok := ctx.Value(GuestIDKey).(string)
	return guestID, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	// Messages can carry verifier error text; marshal rather than
	// interpolate so quotes stay valid JSON.
	body, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		body = []byte(`{"error": "Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
