package security

import (
	"encoding/base64"
	"testing"
)

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(TokenByteLength)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("expected URL-safe base64, got %q: %v", token, err)
	}
	if len(decoded) != TokenByteLength {
		t.Fatalf("expected %d random bytes, got %d", TokenByteLength, len(decoded))
	}

	other, err := GenerateSecureToken(TokenByteLength)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	if token == other {
		t.Fatalf("expected consecutive tokens to differ")
	}
}

func TestGenerateSecureToken_DefaultsLength(t *testing.T) {
	token, err := GenerateSecureToken(0)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if len(decoded) != TokenByteLength {
		t.Fatalf("expected default length %d, got %d", TokenByteLength, len(decoded))
	}
}

func TestHashToken(t *testing.T) {
	hash := HashToken("some-token-value")
	if len(hash) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(hash))
	}
	if hash != HashToken("some-token-value") {
		t.Fatalf("expected hashing to be deterministic")
	}
	if hash == HashToken("some-other-value") {
		t.Fatalf("expected distinct inputs to hash differently")
	}
}
