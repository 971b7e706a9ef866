package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func TestIssueAndParseToken(t *testing.T) {
	claims := Claims{Sub: 42, Exp: time.Now().Add(time.Hour).Unix()}

	token, err := IssueToken(testSecret, claims)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	parsed, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if parsed.Sub != claims.Sub {
		t.Errorf("expected sub %d, got %d", claims.Sub, parsed.Sub)
	}
	if parsed.Exp != claims.Exp {
		t.Errorf("expected exp %d, got %d", claims.Exp, parsed.Exp)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	token, err := IssueToken(testSecret, Claims{Sub: 42, Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		if _, err := ParseToken([]byte("other-secret"), token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("modified payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		forged, err := IssueToken(testSecret, Claims{Sub: 99, Exp: time.Now().Add(time.Hour).Unix()})
		if err != nil {
			t.Fatalf("IssueToken failed: %v", err)
		}
		forgedPayload := strings.Split(forged, ".")[0]
		if _, err := ParseToken(testSecret, forgedPayload+"."+parts[1]); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		for _, raw := range []string{"", "abc", "a.b.c", "!!!.???"} {
			if _, err := ParseToken(testSecret, raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseToken(%q): expected ErrInvalidToken, got %v", raw, err)
			}
		}
	})
}

func TestParseTokenExpired(t *testing.T) {
	token, err := IssueToken(testSecret, Claims{Sub: 42, Exp: time.Now().Add(-time.Minute).Unix()})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := ParseToken(testSecret, token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	b := HashToken("token-b")
	if a == b {
		t.Error("different tokens must hash differently")
	}
	if a != HashToken("token-a") {
		t.Error("hashing is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
