package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef-test"

func TestIssueAndParseRoundTrip(t *testing.T) {
	m, err := NewManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.IssueToken("acc-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != "acc-1" {
		t.Fatalf("expected acc-1, got %q", id)
	}
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	m, _ := NewManager(testSecret, time.Hour)
	other, _ := NewManager("another-secret-of-16+", time.Hour)

	foreign, _ := other.IssueToken("acc-1")
	if _, err := m.ParseToken(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := m.IssueToken("acc-1")
	m.now = time.Now
	if _, err := m.ParseToken(stale); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", err)
	}

	if _, err := m.ParseToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for garbage, got %v", err)
	}
}

func TestNewManagerValidatesInput(t *testing.T) {
	if _, err := NewManager("short", time.Hour); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
	if _, err := NewManager(testSecret, 0); err == nil {
		t.Fatalf("expected non-positive ttl to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch")
	}
}
