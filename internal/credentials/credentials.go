// Package credentials handles guest identity secrets. Passwords are stored
// only as bcrypt hashes; the raw secret never touches the database.
package credentials

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyUsername   = errors.New("username must not be empty")
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrWrongPassword   = errors.New("wrong password")
	ErrPasswordTooLong = errors.New("password too long")
)

var adjectives = []string{
	"steady", "quiet", "early", "honest", "patient", "solid", "bright",
	"calm", "bold", "clear", "keen", "brisk", "plain", "swift", "sharp",
	"sober", "fresh", "firm", "level", "stark",
}

var nouns = []string{
	"oak", "river", "summit", "anchor", "compass", "beacon", "harbor",
	"bridge", "cedar", "falcon", "granite", "lantern", "meadow", "north",
	"pine", "ridge", "slate", "spring", "trail", "wolf",
}

// GenerateGuestName builds a display name for anonymous guests, e.g.
// "steady-falcon-4821".
func GenerateGuestName() (string, error) {
	adj, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}
	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", adj, noun, n.Int64()), nil
}

// Validate rejects empty or unusable guest credentials before anything is
// written.
func Validate(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	if password == "" {
		return ErrEmptyPassword
	}
	// bcrypt silently truncates past 72 bytes.
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword returns the salted bcrypt hash to persist.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a login attempt against the stored hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

func randomElement(list []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	if err != nil {
		return "", err
	}
	return list[n.Int64()], nil
}
