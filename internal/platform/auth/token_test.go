package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestIssueToken_Claims(t *testing.T) {
	id := uuid.New()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tokenStr, err := IssueToken(testSigningKey, id, 480*time.Minute, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return testSigningKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now.Add(time.Minute) }))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != id.String() {
		t.Errorf("expected sub %s, got %s", id, claims.Subject)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(8 * time.Hour)) {
		t.Errorf("expected exp %v, got %v", now.Add(8*time.Hour), claims.ExpiresAt.Time)
	}
}

func TestIssueToken_EmptyKey(t *testing.T) {
	if _, err := IssueToken(nil, uuid.New(), time.Hour, time.Now()); err == nil {
		t.Error("expected error for empty signing key")
	}
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the password")
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong-pass") {
		t.Error("expected wrong password to fail")
	}
	if CheckPassword("", "s3cret-pass") {
		t.Error("empty hash must never match")
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("expected error for short password")
	}
}
