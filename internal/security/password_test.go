package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	hash, err := HashPasswordWithCost("secret123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if hash == "secret123" {
		t.Fatal("hash must not equal plain text")
	}

	if err := CheckPassword(hash, "secret123"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}

	if err := CheckPassword(hash, "secret124"); err != bcrypt.ErrMismatchedHashAndPassword {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestHashPasswordUsesConfiguredCost(t *testing.T) {
	if testing.Short() {
		t.Skip("bcrypt cost 12 is slow")
	}

	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}

	if cost != Cost {
		t.Fatalf("got cost %d, want %d", cost, Cost)
	}
}
