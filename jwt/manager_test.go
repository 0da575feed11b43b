package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestSignerIssueVerify(t *testing.T) {
	s, err := NewSigner(SignerConfig{Secret: testSecret, AccessTTL: time.Minute, Issuer: "lms", KeyID: "k1"})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	token, err := s.Issue("u1", "ada@example.edu", "t1", []string{"student"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "u1" || claims.TenantID != "t1" || len(claims.Roles) != 1 || claims.Roles[0] != "student" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestSignerRejectsForeignSecret(t *testing.T) {
	s, _ := NewSigner(SignerConfig{Secret: testSecret, AccessTTL: time.Minute})
	other, _ := NewSigner(SignerConfig{Secret: []byte("ffffffffffffffffffffffffffffffff"), AccessTTL: time.Minute})

	token, _ := other.Issue("u1", "", "", nil)
	if _, err := s.Verify(token); err == nil {
		t.Fatal("expected foreign signature to be rejected")
	}
}

func TestNewSignerValidation(t *testing.T) {
	if _, err := NewSigner(SignerConfig{Secret: []byte("short"), AccessTTL: time.Minute}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := NewSigner(SignerConfig{Secret: testSecret}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
}

func TestInspectReadsExpiryWithoutKey(t *testing.T) {
	claims := Claims{
		Roles: []string{"instructor"},
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u2",
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got.Subject != "u2" {
		t.Fatalf("subject = %q", got.Subject)
	}
	if !got.Expired(time.Now(), 0) {
		t.Fatal("expected expired token")
	}
	if got.Expired(time.Now().Add(-2*time.Hour), 0) {
		t.Fatal("token must not be expired before exp")
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	if _, err := Inspect("opaque-token"); !errors.Is(err, ErrNotJWT) {
		t.Fatalf("expected ErrNotJWT, got %v", err)
	}
}

func TestClaimsWithoutExpiryNeverExpire(t *testing.T) {
	var c Claims
	if c.Expired(time.Now(), 0) {
		t.Fatal("claims without exp must not expire")
	}
}
