package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func setSecret(t *testing.T) {
	t.Helper()
	t.Setenv("GUEST_JWT_SECRET", "test-secret-not-for-production")
}

func TestGuestTokenRoundTrip(t *testing.T) {
	setSecret(t)

	token, err := IssueGuestToken("0d9f1c0a-9d35-4f2e-8f21-0c1a2b3c4d5e")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	got, err := VerifyGuestToken(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if got != "0d9f1c0a-9d35-4f2e-8f21-0c1a2b3c4d5e" {
		t.Errorf("subject = %q, want original user id", got)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	setSecret(t)

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret-not-for-production"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := VerifyGuestToken(signed); err == nil {
		t.Error("token with foreign issuer accepted")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	setSecret(t)

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    GuestIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("a-different-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := VerifyGuestToken(signed); err == nil {
		t.Error("token signed with wrong secret accepted")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	setSecret(t)

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    GuestIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret-not-for-production"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := VerifyGuestToken(signed); err == nil {
		t.Error("expired token accepted")
	}
}

func TestRespondWithErrorEscapesMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	respondWithError(rr, http.StatusUnauthorized, `token "abc" rejected: expired at "2026-01-01"`)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rr.Body.String())
	}
	if !strings.Contains(body["error"], `"abc"`) {
		t.Errorf("quoted message was mangled: %q", body["error"])
	}
}
