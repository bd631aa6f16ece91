package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestVerifyAdminSecretPlain(t *testing.T) {
	t.Setenv("ADMIN_SECRET_HASH", "")
	t.Setenv("ADMIN_SECRET", "hunter2")

	if err := VerifyAdminSecret("hunter2"); err != nil {
		t.Fatalf("valid secret rejected: %v", err)
	}
	if err := VerifyAdminSecret("wrong"); err != ErrInvalidSecret {
		t.Fatalf("wrong secret: got %v, want ErrInvalidSecret", err)
	}
	if err := VerifyAdminSecret(""); err != ErrInvalidSecret {
		t.Fatalf("empty secret: got %v, want ErrInvalidSecret", err)
	}
}

func TestVerifyAdminSecretHashWinsOverPlain(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADMIN_SECRET_HASH", string(hash))
	t.Setenv("ADMIN_SECRET", "plain-wins-not")

	if err := VerifyAdminSecret("correct horse"); err != nil {
		t.Fatalf("hashed secret rejected: %v", err)
	}
	if err := VerifyAdminSecret("plain-wins-not"); err != ErrInvalidSecret {
		t.Fatalf("plain secret must not pass when a hash is set: %v", err)
	}
}

func TestVerifyAdminSecretUnconfigured(t *testing.T) {
	t.Setenv("ADMIN_SECRET_HASH", "")
	t.Setenv("ADMIN_SECRET", "")

	if err := VerifyAdminSecret("anything"); err != ErrNotConfigured {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-signing-secret")

	token, err := IssueToken()
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	sub, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if sub != "admin" {
		t.Fatalf("subject = %q, want admin", sub)
	}

	if _, err := ParseToken(token + "tampered"); err == nil {
		t.Fatal("tampered token accepted")
	}
}
