package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword(DefaultArgon, "Password123!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	ok, err := VerifyPassword("Password123!", hash)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if !ok {
		t.Fatalf("expected VerifyPassword to succeed")
	}
}

func TestVerifyPasswordWrongPassword(t *testing.T) {
	hash, err := HashPassword(DefaultArgon, "Password123!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	ok, err := VerifyPassword("Password124!", hash)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	ok, err := VerifyPassword("Password123!", "invalid-hash-format")
	if err == nil {
		t.Fatalf("expected error for malformed hash")
	}
	if ok {
		t.Fatalf("expected verification failure for malformed hash")
	}
}

func TestVerifyPasswordCrossCost(t *testing.T) {
	cheap := ArgonParams{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}
	hash, err := HashPassword(cheap, "Password123!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	// Parameters are read from the encoded hash, not from DefaultArgon.
	ok, err := VerifyPassword("Password123!", hash)
	if err != nil || !ok {
		t.Fatalf("expected verify across cost settings, ok=%v err=%v", ok, err)
	}
}
