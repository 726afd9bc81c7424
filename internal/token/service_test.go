package token

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := New("test-signing-key", "api.foodbridge.test")

	tok, err := svc.GenerateToken("user-001", "donor@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-001" {
		t.Errorf("UserID = %q, want user-001", claims.UserID)
	}
	if claims.Email != "donor@example.com" {
		t.Errorf("Email = %q, want donor@example.com", claims.Email)
	}
	if claims.Issuer != "api.foodbridge.test" {
		t.Errorf("Issuer = %q, want api.foodbridge.test", claims.Issuer)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := New("test-signing-key", "api.foodbridge.test")

	tok, err := svc.GenerateToken("user-001", "donor@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := svc.ValidateToken(tok); err == nil {
		t.Error("expected error validating expired token")
	}
}

func TestValidateToken_WrongKey(t *testing.T) {
	svc := New("key-one", "api.foodbridge.test")
	other := New("key-two", "api.foodbridge.test")

	tok, err := svc.GenerateToken("user-001", "donor@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := other.ValidateToken(tok); err == nil {
		t.Error("expected error validating token signed with a different key")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := New("test-signing-key", "api.foodbridge.test")

	if _, err := svc.ValidateToken("not-a-jwt"); err == nil {
		t.Error("expected error validating garbage token")
	}
}

func TestGenerateSigningKey(t *testing.T) {
	k1, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	k2, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	if len(k1) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(k1))
	}
	if strings.EqualFold(k1, k2) {
		t.Error("two generated keys are identical")
	}
}
