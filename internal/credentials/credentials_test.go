package credentials

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("password stored in plain text")
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}

func TestHashesAreSalted(t *testing.T) {
	a, _ := HashPassword("same")
	b, _ := HashPassword("same")
	if a == b {
		t.Error("identical passwords produced identical hashes")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"ok", "alice", "secret", nil},
		{"empty username", "", "secret", ErrEmptyUsername},
		{"whitespace username", "   ", "secret", ErrEmptyUsername},
		{"empty password", "alice", "", ErrEmptyPassword},
		{"oversized password", "alice", strings.Repeat("x", 73), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		if err := Validate(tt.username, tt.password); err != tt.wantErr {
			t.Errorf("%s: Validate() = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestGenerateGuestName(t *testing.T) {
	name, err := GenerateGuestName()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	parts := strings.Split(name, "-")
	if len(parts) != 3 {
		t.Fatalf("name %q does not match adjective-noun-number shape", name)
	}
	if len(parts[2]) != 4 {
		t.Errorf("numeric suffix %q should be 4 digits", parts[2])
	}
}
