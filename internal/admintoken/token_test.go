package admintoken

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func writeKeyPair(t *testing.T, prefix string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	privatePath := filepath.Join(dir, prefix+"-private.pem")
	publicPath := filepath.Join(dir, prefix+"-public.pem")
	if err := GenerateKeyPairFiles(privatePath, publicPath); err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	return privatePath, publicPath
}

func TestSignerVerifierRS256(t *testing.T) {
	privatePath, publicPath := writeKeyPair(t, "admin")
	signer, err := NewSigner(SignerOptions{PrivateKeyPath: privatePath, TTL: time.Minute})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := NewVerifier(VerifierOptions{PublicKeyPath: publicPath})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := signer.Sign("ops", ScopeWrite)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := verifier.Verify(token, ScopeWrite)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "ops" || claims.Issuer != DefaultIssuer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifierRejectsMissingScope(t *testing.T) {
	privatePath, publicPath := writeKeyPair(t, "scope")
	signer, _ := NewSigner(SignerOptions{PrivateKeyPath: privatePath})
	verifier, _ := NewVerifier(VerifierOptions{PublicKeyPath: publicPath})
	token, err := signer.Sign("reader")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(token, ScopeWrite); err == nil {
		t.Fatalf("expected missing scope to fail")
	}
}

func TestVerifierRejectsWrongAudience(t *testing.T) {
	privatePath, publicPath := writeKeyPair(t, "aud")
	signer, _ := NewSigner(SignerOptions{PrivateKeyPath: privatePath, Audience: "elsewhere"})
	verifier, _ := NewVerifier(VerifierOptions{PublicKeyPath: publicPath})
	token, _ := signer.Sign("ops", ScopeWrite)
	if _, err := verifier.Verify(token, ScopeWrite); err == nil {
		t.Fatalf("expected audience mismatch")
	}
}

func TestVerifierRejectsForeignKey(t *testing.T) {
	privatePath, _ := writeKeyPair(t, "signer")
	_, otherPublic := writeKeyPair(t, "other")
	signer, _ := NewSigner(SignerOptions{PrivateKeyPath: privatePath})
	verifier, _ := NewVerifier(VerifierOptions{PublicKeyPath: otherPublic})
	token, _ := signer.Sign("ops", ScopeWrite)
	if _, err := verifier.Verify(token, ScopeWrite); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestVerifierRejectsUnknownKid(t *testing.T) {
	privatePath, publicPath := writeKeyPair(t, "kid")
	signer, _ := NewSigner(SignerOptions{PrivateKeyPath: privatePath, KeyID: "kid-1"})
	verifier, _ := NewVerifier(VerifierOptions{PublicKeyPath: publicPath, DefaultKeyID: "kid-2"})
	token, _ := signer.Sign("ops", ScopeWrite)
	if _, err := verifier.Verify(token, ScopeWrite); err == nil {
		t.Fatalf("expected unknown kid to fail")
	}
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	privatePath, publicPath := writeKeyPair(t, "exp")
	verifier, _ := NewVerifier(VerifierOptions{PublicKeyPath: publicPath, Leeway: time.Second})
	key, err := loadRSAPrivateKeyFromPEMFile(privatePath)
	if err != nil {
		t.Fatalf("load private key: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		Scopes: []string{ScopeWrite},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "ops",
			Audience:  jwt.ClaimStrings{DefaultAudience},
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
	})
	token.Header["kid"] = DefaultKeyID
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := verifier.Verify(signed, ScopeWrite); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerifierRequiresKey(t *testing.T) {
	if _, err := NewVerifier(VerifierOptions{}); err == nil {
		t.Fatalf("expected verifier without keys to fail")
	}
}

func TestSignerRequiresPrivateKey(t *testing.T) {
	if _, err := NewSigner(SignerOptions{}); err == nil {
		t.Fatalf("expected missing key path to fail")
	}
}

func TestParseVerifyPublicKeys(t *testing.T) {
	parsed, err := ParseVerifyPublicKeys("k1=/a.pem, k2=/b.pem")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 2 || parsed["k2"] != "/b.pem" {
		t.Fatalf("unexpected parsed map: %v", parsed)
	}
	if _, err := ParseVerifyPublicKeys("broken"); err == nil {
		t.Fatalf("expected malformed entry to fail")
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest("POST", "/countries/refresh", nil)
	req.Header.Set("Authorization", "Bearer abc")
	token, ok := BearerToken(req)
	if !ok || token != "abc" {
		t.Fatalf("expected bearer token")
	}
	req.Header.Set("Authorization", "Basic abc")
	if _, ok := BearerToken(req); ok {
		t.Fatalf("expected non-bearer scheme to be ignored")
	}
}
